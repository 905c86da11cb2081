package routes

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bubblecast/internal/auth"
	"bubblecast/internal/workflow"
)

type Middleware struct {
	server ServerInterface
}

func NewMiddleware(server ServerInterface) *Middleware {
	return &Middleware{server: server}
}

func (m *Middleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userIDRaw := session.Get("user_id")

		if userIDRaw == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		userID, ok := userIDRaw.(int)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Invalid session data"})
			return
		}

		db := m.server.GetDB()
		user, err := db.Users.Get(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or database error"})
			return
		}

		role, err := auth.RoleFromUser(user)
		if err != nil {
			m.server.GetLogger().WithError(err).WithField("user_id", user.ID).Error("could not resolve role")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account has no valid role assignment"})
			return
		}

		c.Set("user", user)
		c.Set("role", role)
		c.Next()
	}
}

// AgencyOnly rejects requests from anyone who is not internal staff. It must
// run after AuthMiddleware.
func (m *Middleware) AgencyOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || !role.(auth.Role).IsAgency() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Internal staff only"})
			return
		}
		c.Next()
	}
}

// currentRole reads the actor role AuthMiddleware stored on the context.
func currentRole(c *gin.Context) auth.Role {
	return c.MustGet("role").(auth.Role)
}

// parseUUIDParam parses a path parameter as a UUID, writing the 400 itself.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// renderWorkflowError maps the workflow error taxonomy onto HTTP statuses.
func renderWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to do that"})
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
