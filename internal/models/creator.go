package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Creator represents a content-creation professional. Creators are
// independent of clients and participate in castings through invitations,
// selections and submissions.
type Creator struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	AvatarURL string    `gorm:"column:avatar_url" json:"avatar_url"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Invitations []CastingInvitation `gorm:"foreignKey:CreatorID" json:"invitations,omitempty"`
	Submissions []CreatorSubmission `gorm:"foreignKey:CreatorID" json:"submissions,omitempty"`
}

// TableName specifies the table name for the Creator model
func (Creator) TableName() string {
	return "creators"
}

// CreatorManager provides Django-like ORM methods for Creator
type CreatorManager struct {
	db *gorm.DB
}

// NewCreatorManager creates a new CreatorManager instance
func NewCreatorManager(db *gorm.DB) *CreatorManager {
	return &CreatorManager{db: db}
}

// Create creates a new creator
func (m *CreatorManager) Create(creator *Creator) error {
	return m.db.Create(creator).Error
}

// Get retrieves a creator by ID
func (m *CreatorManager) Get(id uuid.UUID) (*Creator, error) {
	var creator Creator
	err := m.db.First(&creator, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &creator, nil
}

// GetMany retrieves creators for a set of IDs. Missing IDs are not an error
// here; callers compare lengths when they need all of them to exist.
func (m *CreatorManager) GetMany(ids []uuid.UUID) ([]Creator, error) {
	var creators []Creator
	err := m.db.Where("id IN ?", ids).Find(&creators).Error
	return creators, err
}

// All retrieves all creators
func (m *CreatorManager) All() ([]Creator, error) {
	var creators []Creator
	err := m.db.Find(&creators).Error
	return creators, err
}

// Filter retrieves creators matching the given conditions
func (m *CreatorManager) Filter(conditions interface{}) ([]Creator, error) {
	var creators []Creator
	err := m.db.Where(conditions).Find(&creators).Error
	return creators, err
}

// Update updates a creator
func (m *CreatorManager) Update(creator *Creator) error {
	return m.db.Save(creator).Error
}

// Delete deletes a creator
func (m *CreatorManager) Delete(id uuid.UUID) error {
	return m.db.Delete(&Creator{}, "id = ?", id).Error
}
