package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bubblecast/internal/auth"
	"bubblecast/internal/models"
	"bubblecast/internal/workflow"
)

type CastingRoutes struct {
	server ServerInterface
}

func NewCastingRoutes(server ServerInterface) *CastingRoutes {
	return &CastingRoutes{server: server}
}

func (cr *CastingRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(cr.server)
	authed := middleware.AuthMiddleware()
	agency := middleware.AgencyOnly()

	r.GET("/castings", authed, cr.listCastingsHandler)
	r.POST("/castings", authed, agency, cr.createCastingHandler)
	r.GET("/castings/:id", authed, cr.getCastingHandler)
	r.PATCH("/castings/:id", authed, cr.updateCastingHandler)
	r.DELETE("/castings/:id", authed, agency, cr.deleteCastingHandler)

	r.POST("/castings/:id/invitations", authed, cr.sendInvitationsHandler)
	r.GET("/castings/:id/invitations", authed, cr.listInvitationsHandler)
	r.GET("/invitations", authed, cr.listMyInvitationsHandler)
	r.POST("/invitations/:id/respond", authed, cr.respondToInvitationHandler)

	r.POST("/castings/:id/shortlist", authed, cr.shortlistHandler)
	r.POST("/castings/:id/selection", authed, cr.selectFinalHandler)
	r.GET("/castings/:id/selections", authed, cr.listSelectionsHandler)

	r.GET("/castings/:id/briefings", authed, cr.listLinkedBriefingsHandler)
	r.GET("/castings/:id/available-briefings", authed, cr.listAvailableBriefingsHandler)
	r.POST("/castings/:id/briefings/:briefingID", authed, cr.linkBriefingHandler)
	r.DELETE("/castings/:id/briefings/:briefingID", authed, cr.unlinkBriefingHandler)
}

// loadCastingForActor fetches a casting and enforces read access: agency sees
// everything, client users only their own client's castings.
func (cr *CastingRoutes) loadCastingForActor(c *gin.Context, castingID uuid.UUID) (*models.Casting, bool) {
	casting, err := cr.server.GetDB().Castings.GetWithRelations(castingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Casting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch casting"})
		}
		return nil, false
	}

	role := currentRole(c)
	if !role.IsAgency() && !role.OwnsClient(casting.ClientID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view this casting"})
		return nil, false
	}
	return casting, true
}

func (cr *CastingRoutes) listCastingsHandler(c *gin.Context) {
	role := currentRole(c)
	db := cr.server.GetDB()

	var (
		castings []models.Casting
		err      error
	)
	switch {
	case role.IsAgency():
		castings, err = db.Castings.All()
	case role.Kind == auth.KindClient:
		castings, err = db.Castings.ForClient(role.ClientID)
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Creators see their castings through invitations"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch castings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"castings": castings, "total": len(castings)})
}

func (cr *CastingRoutes) createCastingHandler(c *gin.Context) {
	var req struct {
		ClientID     uuid.UUID `json:"client_id" binding:"required"`
		Title        string    `json:"title" binding:"required,min=1,max=200"`
		MaxCreators  int       `json:"max_creators"`
		Compensation int64     `json:"compensation_cents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxCreators < 1 {
		req.MaxCreators = 1
	}

	db := cr.server.GetDB()
	if _, err := db.Clients.Get(req.ClientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		}
		return
	}

	casting := &models.Casting{
		ClientID:     req.ClientID,
		Title:        req.Title,
		Status:       models.CastingDraft,
		MaxCreators:  req.MaxCreators,
		Compensation: req.Compensation,
	}
	if err := db.Castings.Create(casting); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create casting"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"casting": casting})
}

func (cr *CastingRoutes) getCastingHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	casting, ok := cr.loadCastingForActor(c, castingID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"casting": casting})
}

func (cr *CastingRoutes) updateCastingHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Title        *string `json:"title"`
		Status       *string `json:"status"`
		MaxCreators  *int    `json:"max_creators"`
		Compensation *int64  `json:"compensation_cents"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := workflow.UpdateCastingInput{
		Title:        req.Title,
		MaxCreators:  req.MaxCreators,
		Compensation: req.Compensation,
	}
	if req.Status != nil {
		status := models.CastingStatus(*req.Status)
		patch.Status = &status
	}

	casting, err := cr.server.GetOrchestrator().UpdateCasting(c.Request.Context(), currentRole(c), castingID, patch)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"casting": casting})
}

func (cr *CastingRoutes) deleteCastingHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := cr.server.GetDB()
	casting, err := db.Castings.Get(castingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Casting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch casting"})
		}
		return
	}
	if casting.Status != models.CastingDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft castings can be deleted"})
		return
	}
	if err := db.Castings.Delete(castingID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete casting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Casting deleted"})
}

func (cr *CastingRoutes) sendInvitationsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CreatorIDs []uuid.UUID `json:"creator_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := cr.server.GetOrchestrator().SendInvitations(c.Request.Context(), currentRole(c), castingID, req.CreatorIDs)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitations sent", "invited": len(req.CreatorIDs)})
}

func (cr *CastingRoutes) listInvitationsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := cr.loadCastingForActor(c, castingID); !ok {
		return
	}

	invitations, err := cr.server.GetDB().Invitations.ForCasting(castingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invitations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations, "total": len(invitations)})
}

func (cr *CastingRoutes) listMyInvitationsHandler(c *gin.Context) {
	role := currentRole(c)
	if role.Kind != auth.KindCreator {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only creators have an invitation inbox"})
		return
	}

	invitations, err := cr.server.GetDB().Invitations.ForCreator(role.CreatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invitations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations, "total": len(invitations)})
}

func (cr *CastingRoutes) respondToInvitationHandler(c *gin.Context) {
	invitationID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Accept *bool  `json:"accept" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := cr.server.GetOrchestrator().RespondToInvitation(c.Request.Context(), currentRole(c), invitationID, *req.Accept, req.Reason)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Response recorded"})
}

func (cr *CastingRoutes) shortlistHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CreatorIDs []uuid.UUID `json:"creator_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := cr.server.GetOrchestrator().SelectForClientReview(c.Request.Context(), currentRole(c), castingID, req.CreatorIDs)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shortlist recorded"})
}

func (cr *CastingRoutes) selectFinalHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CreatorIDs []uuid.UUID `json:"creator_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := cr.server.GetOrchestrator().SelectFinalCreators(c.Request.Context(), currentRole(c), castingID, req.CreatorIDs)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Final selection recorded", "status": status})
}

func (cr *CastingRoutes) listSelectionsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := cr.loadCastingForActor(c, castingID); !ok {
		return
	}

	selections, err := cr.server.GetDB().Selections.ForCasting(castingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch selections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selections": selections, "total": len(selections)})
}

func (cr *CastingRoutes) listLinkedBriefingsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := cr.loadCastingForActor(c, castingID); !ok {
		return
	}

	links, err := cr.server.GetDB().BriefingLinks.ForCasting(castingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch briefing links"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"briefings": links, "total": len(links)})
}

func (cr *CastingRoutes) listAvailableBriefingsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	casting, ok := cr.loadCastingForActor(c, castingID)
	if !ok {
		return
	}

	briefings, err := cr.server.GetDB().Briefings.AvailableForCasting(casting.ClientID, castingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch available briefings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"briefings": briefings, "total": len(briefings)})
}

func (cr *CastingRoutes) linkBriefingHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	briefingID, ok := parseUUIDParam(c, "briefingID")
	if !ok {
		return
	}

	err := cr.server.GetOrchestrator().LinkBriefing(c.Request.Context(), currentRole(c), castingID, briefingID)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Briefing linked"})
}

func (cr *CastingRoutes) unlinkBriefingHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	briefingID, ok := parseUUIDParam(c, "briefingID")
	if !ok {
		return
	}

	err := cr.server.GetOrchestrator().UnlinkBriefing(c.Request.Context(), currentRole(c), castingID, briefingID)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Briefing unlinked"})
}
