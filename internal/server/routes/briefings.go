package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bubblecast/internal/auth"
	"bubblecast/internal/models"
)

type BriefingRoutes struct {
	server ServerInterface
}

func NewBriefingRoutes(server ServerInterface) *BriefingRoutes {
	return &BriefingRoutes{server: server}
}

func (br *BriefingRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(br.server)
	authed := middleware.AuthMiddleware()

	r.GET("/briefings", authed, br.listBriefingsHandler)
	r.POST("/briefings", authed, br.createBriefingHandler)
	r.GET("/briefings/:id", authed, br.getBriefingHandler)
	r.PATCH("/briefings/:id", authed, br.updateBriefingHandler)
	r.DELETE("/briefings/:id", authed, middleware.AgencyOnly(), br.deleteBriefingHandler)
	r.POST("/briefings/:id/submit", authed, br.submitBriefingHandler)
	r.POST("/briefings/:id/approve", authed, br.approveBriefingHandler)
}

// loadBriefingForActor fetches a briefing and enforces access: agency sees
// everything, client users only their own client's briefings.
func (br *BriefingRoutes) loadBriefingForActor(c *gin.Context, briefingID uuid.UUID) (*models.Briefing, bool) {
	briefing, err := br.server.GetDB().Briefings.Get(briefingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Briefing not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch briefing"})
		}
		return nil, false
	}

	role := currentRole(c)
	if !role.IsAgency() && !role.OwnsClient(briefing.ClientID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view this briefing"})
		return nil, false
	}
	return briefing, true
}

func (br *BriefingRoutes) listBriefingsHandler(c *gin.Context) {
	role := currentRole(c)
	db := br.server.GetDB()

	var (
		briefings []models.Briefing
		err       error
	)
	switch {
	case role.IsAgency():
		briefings, err = db.Briefings.All()
	case role.Kind == auth.KindClient:
		briefings, err = db.Briefings.ForClient(role.ClientID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Creators do not manage briefings"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch briefings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"briefings": briefings, "total": len(briefings)})
}

func (br *BriefingRoutes) createBriefingHandler(c *gin.Context) {
	var req struct {
		ClientID uuid.UUID    `json:"client_id"`
		Title    string       `json:"title" binding:"required,min=1,max=200"`
		Content  models.JSONB `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := currentRole(c)
	clientID := req.ClientID
	switch {
	case role.Kind == auth.KindClient:
		// Client users always create briefings for their own client.
		clientID = role.ClientID
	case role.IsAgency():
		if clientID == uuid.Nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
			return
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Creators do not manage briefings"})
		return
	}

	db := br.server.GetDB()
	if _, err := db.Clients.Get(clientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		}
		return
	}

	briefing := &models.Briefing{
		ClientID: clientID,
		Title:    req.Title,
		Content:  req.Content,
		Status:   models.BriefingDraft,
	}
	if err := db.Briefings.Create(briefing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create briefing"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"briefing": briefing})
}

func (br *BriefingRoutes) getBriefingHandler(c *gin.Context) {
	briefingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	briefing, ok := br.loadBriefingForActor(c, briefingID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"briefing": briefing})
}

func (br *BriefingRoutes) updateBriefingHandler(c *gin.Context) {
	briefingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	briefing, ok := br.loadBriefingForActor(c, briefingID)
	if !ok {
		return
	}
	if briefing.Status == models.BriefingApproved {
		c.JSON(http.StatusConflict, gin.H{"error": "Approved briefings cannot be edited"})
		return
	}

	var req struct {
		Title   *string      `json:"title"`
		Content models.JSONB `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil {
		briefing.Title = *req.Title
	}
	if req.Content != nil {
		briefing.Content = req.Content
	}
	if err := br.server.GetDB().Briefings.Update(briefing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update briefing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"briefing": briefing})
}

func (br *BriefingRoutes) deleteBriefingHandler(c *gin.Context) {
	briefingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := br.loadBriefingForActor(c, briefingID); !ok {
		return
	}
	if err := br.server.GetDB().Briefings.Delete(briefingID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete briefing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Briefing deleted"})
}

func (br *BriefingRoutes) submitBriefingHandler(c *gin.Context) {
	briefingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	err := br.server.GetOrchestrator().SubmitBriefingForApproval(c.Request.Context(), currentRole(c), briefingID)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Briefing sent for approval"})
}

func (br *BriefingRoutes) approveBriefingHandler(c *gin.Context) {
	briefingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	err := br.server.GetOrchestrator().ApproveBriefing(c.Request.Context(), currentRole(c), briefingID)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Briefing approved"})
}
