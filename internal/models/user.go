package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User role values stored on the users table.
const (
	UserRoleAgency  = "social_bubble"
	UserRoleClient  = "client"
	UserRoleCreator = "creator"
)

// User represents an authenticated identity in the system. The role column
// decides which side of the workflow the user acts for: social_bubble staff,
// a client-side user (ClientID set), or a creator (CreatorID set).
type User struct {
	ID         int        `gorm:"primaryKey;column:id" json:"id"`
	Provider   string     `gorm:"column:provider;not null" json:"provider"`
	ProviderID string     `gorm:"column:provider_id;not null" json:"provider_id"`
	Email      string     `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name       string     `gorm:"column:name;not null" json:"name"`
	AvatarURL  string     `gorm:"column:avatar_url" json:"avatar_url"`
	Role       string     `gorm:"column:role;default:'social_bubble'" json:"role"` // social_bubble, client, creator
	ClientID   *uuid.UUID `gorm:"column:client_id;type:uuid" json:"client_id,omitempty"`
	CreatorID  *uuid.UUID `gorm:"column:creator_id;type:uuid" json:"creator_id,omitempty"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Client  *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Creator *Creator `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// UserManager provides Django-like ORM methods for User
type UserManager struct {
	db *gorm.DB
}

// NewUserManager creates a new UserManager instance
func NewUserManager(db *gorm.DB) *UserManager {
	return &UserManager{db: db}
}

// Create creates a new user
func (m *UserManager) Create(user *User) error {
	return m.db.Create(user).Error
}

// Get retrieves a user by ID
func (m *UserManager) Get(id int) (*User, error) {
	var user User
	err := m.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (m *UserManager) GetByEmail(email string) (*User, error) {
	var user User
	err := m.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate gets an existing user or creates a new one keyed by the OAuth
// provider identity. Returns whether the user was created.
func (m *UserManager) GetOrCreate(provider, providerID string, defaults User) (*User, bool, error) {
	var user User
	err := m.db.Where("provider = ? AND provider_id = ?", provider, providerID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = defaults
		user.Provider = provider
		user.ProviderID = providerID
		if err := m.db.Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	// Refresh profile fields on every login
	user.Email = defaults.Email
	user.Name = defaults.Name
	user.AvatarURL = defaults.AvatarURL
	if err := m.db.Save(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, false, nil
}

// ForClient retrieves all client-side users of a client. These are the
// recipients of "ready for review" emails.
func (m *UserManager) ForClient(clientID uuid.UUID) ([]User, error) {
	var users []User
	err := m.db.Where("role = ? AND client_id = ?", "client", clientID).Find(&users).Error
	return users, err
}

// Filter retrieves users matching the given conditions
func (m *UserManager) Filter(conditions interface{}) ([]User, error) {
	var users []User
	err := m.db.Where(conditions).Find(&users).Error
	return users, err
}

// Update updates a user
func (m *UserManager) Update(user *User) error {
	return m.db.Save(user).Error
}
