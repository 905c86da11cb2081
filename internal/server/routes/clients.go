package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bubblecast/internal/models"
)

type ClientRoutes struct {
	server ServerInterface
}

func NewClientRoutes(server ServerInterface) *ClientRoutes {
	return &ClientRoutes{server: server}
}

func (cl *ClientRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(cl.server)
	authed := middleware.AuthMiddleware()
	agency := middleware.AgencyOnly()

	r.GET("/clients", authed, agency, cl.listClientsHandler)
	r.POST("/clients", authed, agency, cl.createClientHandler)
	r.GET("/clients/:id", authed, agency, cl.getClientHandler)
	r.PATCH("/clients/:id", authed, agency, cl.updateClientHandler)
	r.DELETE("/clients/:id", authed, agency, cl.deleteClientHandler)
}

func (cl *ClientRoutes) listClientsHandler(c *gin.Context) {
	clients, err := cl.server.GetDB().Clients.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": len(clients)})
}

func (cl *ClientRoutes) createClientHandler(c *gin.Context) {
	var req struct {
		CompanyName       string `json:"company_name" binding:"required,min=1,max=200"`
		ContactEmail      string `json:"contact_email" binding:"omitempty,email"`
		DriveRootFolderID string `json:"drive_root_folder_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := &models.Client{
		CompanyName:       req.CompanyName,
		ContactEmail:      req.ContactEmail,
		DriveRootFolderID: req.DriveRootFolderID,
	}
	if err := cl.server.GetDB().Clients.Create(client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create client"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

func (cl *ClientRoutes) getClientHandler(c *gin.Context) {
	clientID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	client, err := cl.server.GetDB().Clients.Get(clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (cl *ClientRoutes) updateClientHandler(c *gin.Context) {
	clientID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := cl.server.GetDB()
	client, err := db.Clients.Get(clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Client not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch client"})
		}
		return
	}

	var req struct {
		CompanyName       *string `json:"company_name"`
		ContactEmail      *string `json:"contact_email"`
		DriveRootFolderID *string `json:"drive_root_folder_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.ContactEmail != nil {
		client.ContactEmail = *req.ContactEmail
	}
	if req.DriveRootFolderID != nil {
		client.DriveRootFolderID = *req.DriveRootFolderID
	}
	if err := db.Clients.Update(client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (cl *ClientRoutes) deleteClientHandler(c *gin.Context) {
	clientID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := cl.server.GetDB()
	castings, err := db.Castings.ForClient(clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check client castings"})
		return
	}
	if len(castings) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Client still has castings"})
		return
	}
	if err := db.Clients.Delete(clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}
