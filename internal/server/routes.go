package server

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"bubblecast/internal/auth"
	"bubblecast/internal/server/routes"
)

func (s *Server) RegisterRoutes() http.Handler {
	// Initialize Goth providers
	auth.InitGothProviders()

	r := gin.Default()

	// Set up sessions
	store := cookie.NewStore([]byte(os.Getenv("SESSION_SECRET")))
	r.Use(sessions.Sessions("bubblecast-session", store))

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)

	routes.NewAuthRoutes(s).RegisterRoutes(r)
	routes.NewClientRoutes(s).RegisterRoutes(r)
	routes.NewCreatorRoutes(s).RegisterRoutes(r)
	routes.NewCastingRoutes(s).RegisterRoutes(r)
	routes.NewBriefingRoutes(s).RegisterRoutes(r)
	routes.NewSubmissionRoutes(s).RegisterRoutes(r)
	routes.NewAutomationRoutes(s).RegisterRoutes(r)

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.Health())
}
