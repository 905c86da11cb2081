package routes

import (
	"net/http"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"github.com/sirupsen/logrus"

	"bubblecast/internal/automation"
	"bubblecast/internal/models"
	"bubblecast/internal/storage"
	"bubblecast/internal/workflow"
)

type AuthRoutes struct {
	server ServerInterface
}

type ServerInterface interface {
	GetDB() *models.DB
	GetOrchestrator() *workflow.Orchestrator
	GetEngine() *automation.Engine
	GetDrive() *storage.DriveService
	GetLogger() *logrus.Logger
}

func NewAuthRoutes(server ServerInterface) *AuthRoutes {
	return &AuthRoutes{server: server}
}

func (ar *AuthRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ar.server)

	// OAuth routes
	r.GET("/auth/:provider", ar.authHandler)
	r.GET("/auth/:provider/callback", ar.authCallbackHandler)
	r.GET("/logout", ar.logoutHandler)
	r.GET("/me", middleware.AuthMiddleware(), ar.meHandler)
}

func (ar *AuthRoutes) authHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, req)
}

func (ar *AuthRoutes) authCallbackHandler(c *gin.Context) {
	provider := c.Param("provider")

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = "/auth/" + provider + "/callback"

	q := req.URL.Query()
	q.Add("provider", provider)
	req.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := ar.server.GetDB()
	user, _, err := db.Users.GetOrCreate(gothUser.Provider, gothUser.UserID, models.User{
		Email:     gothUser.Email,
		Name:      gothUser.Name,
		AvatarURL: gothUser.AvatarURL,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save user"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("email", user.Email)
	session.Save()

	redirectURL := os.Getenv("FRONTEND_URL")
	if redirectURL == "" {
		redirectURL = "http://localhost:3000"
	}

	c.Redirect(http.StatusTemporaryRedirect, redirectURL+"/castings")
}

func (ar *AuthRoutes) logoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ar *AuthRoutes) meHandler(c *gin.Context) {
	user := c.MustGet("user").(*models.User)
	role := currentRole(c)
	c.JSON(http.StatusOK, gin.H{"user": user, "role": role.String()})
}
