package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bubblecast/internal/models"
)

type CreatorRoutes struct {
	server ServerInterface
}

func NewCreatorRoutes(server ServerInterface) *CreatorRoutes {
	return &CreatorRoutes{server: server}
}

func (cr *CreatorRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(cr.server)
	authed := middleware.AuthMiddleware()
	agency := middleware.AgencyOnly()

	r.GET("/creators", authed, agency, cr.listCreatorsHandler)
	r.POST("/creators", authed, agency, cr.createCreatorHandler)
	r.GET("/creators/:id", authed, agency, cr.getCreatorHandler)
	r.PATCH("/creators/:id", authed, agency, cr.updateCreatorHandler)
	r.DELETE("/creators/:id", authed, agency, cr.deleteCreatorHandler)
}

func (cr *CreatorRoutes) listCreatorsHandler(c *gin.Context) {
	creators, err := cr.server.GetDB().Creators.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch creators"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"creators": creators, "total": len(creators)})
}

func (cr *CreatorRoutes) createCreatorHandler(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required,min=1,max=200"`
		Email     string `json:"email" binding:"required,email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creator := &models.Creator{
		Name:      req.Name,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	}
	if err := cr.server.GetDB().Creators.Create(creator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create creator"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"creator": creator})
}

func (cr *CreatorRoutes) getCreatorHandler(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	creator, err := cr.server.GetDB().Creators.Get(creatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch creator"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"creator": creator})
}

func (cr *CreatorRoutes) updateCreatorHandler(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := cr.server.GetDB()
	creator, err := db.Creators.Get(creatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch creator"})
		}
		return
	}

	var req struct {
		Name      *string `json:"name"`
		Email     *string `json:"email" binding:"omitempty,email"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		creator.Name = *req.Name
	}
	if req.Email != nil {
		creator.Email = *req.Email
	}
	if req.AvatarURL != nil {
		creator.AvatarURL = *req.AvatarURL
	}
	if err := db.Creators.Update(creator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update creator"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"creator": creator})
}

func (cr *CreatorRoutes) deleteCreatorHandler(c *gin.Context) {
	creatorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := cr.server.GetDB()
	invitations, err := db.Invitations.ForCreator(creatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check creator invitations"})
		return
	}
	if len(invitations) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Creator has casting history and cannot be deleted"})
		return
	}
	if err := db.Creators.Delete(creatorID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete creator"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Creator deleted"})
}
