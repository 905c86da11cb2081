package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents a company the agency runs castings and briefings for.
// DriveRootFolderID is the client's configured storage root; castings for a
// client without one skip folder provisioning.
type Client struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyName       string    `gorm:"column:company_name;not null" json:"company_name"`
	ContactEmail      string    `gorm:"column:contact_email" json:"contact_email"`
	DriveRootFolderID string    `gorm:"column:drive_root_folder_id" json:"drive_root_folder_id"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Castings  []Casting  `gorm:"foreignKey:ClientID" json:"castings,omitempty"`
	Briefings []Briefing `gorm:"foreignKey:ClientID" json:"briefings,omitempty"`
	Users     []User     `gorm:"foreignKey:ClientID" json:"users,omitempty"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// ClientManager provides Django-like ORM methods for Client
type ClientManager struct {
	db *gorm.DB
}

// NewClientManager creates a new ClientManager instance
func NewClientManager(db *gorm.DB) *ClientManager {
	return &ClientManager{db: db}
}

// Create creates a new client
func (m *ClientManager) Create(client *Client) error {
	return m.db.Create(client).Error
}

// Get retrieves a client by ID
func (m *ClientManager) Get(id uuid.UUID) (*Client, error) {
	var client Client
	err := m.db.First(&client, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// All retrieves all clients
func (m *ClientManager) All() ([]Client, error) {
	var clients []Client
	err := m.db.Find(&clients).Error
	return clients, err
}

// Filter retrieves clients matching the given conditions
func (m *ClientManager) Filter(conditions interface{}) ([]Client, error) {
	var clients []Client
	err := m.db.Where(conditions).Find(&clients).Error
	return clients, err
}

// Update updates a client
func (m *ClientManager) Update(client *Client) error {
	return m.db.Save(client).Error
}

// Delete deletes a client
func (m *ClientManager) Delete(id uuid.UUID) error {
	return m.db.Delete(&Client{}, "id = ?", id).Error
}
