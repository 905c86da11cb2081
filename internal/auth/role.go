package auth

import (
	"fmt"

	"github.com/google/uuid"

	"bubblecast/internal/models"
)

// RoleKind discriminates the closed set of actor roles.
type RoleKind int

const (
	KindAgency RoleKind = iota
	KindClient
	KindCreator
)

// Role is the actor identity resolved once per request: the internal team
// (agency), a client-side user bound to one Client, or a creator. All
// authorization checks switch on Kind instead of comparing strings.
type Role struct {
	UserID    int
	Kind      RoleKind
	ClientID  uuid.UUID
	CreatorID uuid.UUID
}

// AgencyRole builds an internal-team role.
func AgencyRole(userID int) Role {
	return Role{UserID: userID, Kind: KindAgency}
}

// ClientRole builds a client-side role bound to one Client.
func ClientRole(userID int, clientID uuid.UUID) Role {
	return Role{UserID: userID, Kind: KindClient, ClientID: clientID}
}

// CreatorRole builds a creator role bound to one Creator.
func CreatorRole(userID int, creatorID uuid.UUID) Role {
	return Role{UserID: userID, Kind: KindCreator, CreatorID: creatorID}
}

// RoleFromUser resolves a stored user row into a Role.
func RoleFromUser(user *models.User) (Role, error) {
	switch user.Role {
	case models.UserRoleAgency:
		return AgencyRole(user.ID), nil
	case models.UserRoleClient:
		if user.ClientID == nil {
			return Role{}, fmt.Errorf("client user %d has no client assignment", user.ID)
		}
		return ClientRole(user.ID, *user.ClientID), nil
	case models.UserRoleCreator:
		if user.CreatorID == nil {
			return Role{}, fmt.Errorf("creator user %d has no creator assignment", user.ID)
		}
		return CreatorRole(user.ID, *user.CreatorID), nil
	default:
		return Role{}, fmt.Errorf("unknown role %q on user %d", user.Role, user.ID)
	}
}

// IsAgency reports whether the actor is the internal team.
func (r Role) IsAgency() bool { return r.Kind == KindAgency }

// OwnsClient reports whether the actor is a client-side user of clientID.
func (r Role) OwnsClient(clientID uuid.UUID) bool {
	return r.Kind == KindClient && r.ClientID == clientID
}

// IsCreator reports whether the actor is the given creator.
func (r Role) IsCreator(creatorID uuid.UUID) bool {
	return r.Kind == KindCreator && r.CreatorID == creatorID
}

// String names the role for logs and automation audit fields.
func (r Role) String() string {
	switch r.Kind {
	case KindAgency:
		return "social_bubble"
	case KindClient:
		return "client"
	case KindCreator:
		return "creator"
	default:
		return "unknown"
	}
}
