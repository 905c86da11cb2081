package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Casting represents a job requisition a client runs through the agency.
// Status only moves through the transitions the workflow package defines;
// MaxCreators caps the size of the client's final selection.
type Casting struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"client_id"`
	Title        string        `gorm:"column:title;not null" json:"title"`
	Status       CastingStatus `gorm:"column:status;default:'draft'" json:"status"`
	MaxCreators  int           `gorm:"column:max_creators;not null;default:1" json:"max_creators"`
	Compensation int64         `gorm:"column:compensation_cents;default:0" json:"compensation_cents"`
	CreatedAt    time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Client      Client               `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Invitations []CastingInvitation  `gorm:"foreignKey:CastingID" json:"invitations,omitempty"`
	Selections  []CastingSelection   `gorm:"foreignKey:CastingID" json:"selections,omitempty"`
	Submissions []CreatorSubmission  `gorm:"foreignKey:CastingID" json:"submissions,omitempty"`
	Briefings   []CastingBriefingLink `gorm:"foreignKey:CastingID" json:"briefings,omitempty"`
}

// TableName specifies the table name for the Casting model
func (Casting) TableName() string {
	return "castings"
}

// CastingManager provides Django-like ORM methods for Casting
type CastingManager struct {
	db *gorm.DB
}

// NewCastingManager creates a new CastingManager instance
func NewCastingManager(db *gorm.DB) *CastingManager {
	return &CastingManager{db: db}
}

// Create creates a new casting
func (m *CastingManager) Create(casting *Casting) error {
	return m.db.Create(casting).Error
}

// Get retrieves a casting by ID
func (m *CastingManager) Get(id uuid.UUID) (*Casting, error) {
	var casting Casting
	err := m.db.First(&casting, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &casting, nil
}

// GetWithRelations retrieves a casting with its client, invitations,
// selections and briefing links preloaded.
func (m *CastingManager) GetWithRelations(id uuid.UUID) (*Casting, error) {
	var casting Casting
	err := m.db.
		Preload("Client").
		Preload("Invitations").
		Preload("Invitations.Creator").
		Preload("Selections").
		Preload("Briefings").
		Preload("Briefings.Briefing").
		First(&casting, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &casting, nil
}

// All retrieves all castings, newest first
func (m *CastingManager) All() ([]Casting, error) {
	var castings []Casting
	err := m.db.Preload("Client").Order("created_at DESC").Find(&castings).Error
	return castings, err
}

// ForClient retrieves all castings owned by a client
func (m *CastingManager) ForClient(clientID uuid.UUID) ([]Casting, error) {
	var castings []Casting
	err := m.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&castings).Error
	return castings, err
}

// Filter retrieves castings matching the given conditions
func (m *CastingManager) Filter(conditions interface{}) ([]Casting, error) {
	var castings []Casting
	err := m.db.Where(conditions).Find(&castings).Error
	return castings, err
}

// Update updates a casting
func (m *CastingManager) Update(casting *Casting) error {
	return m.db.Save(casting).Error
}

// Delete deletes a casting together with its invitations, selections,
// submissions and briefing links. Only test-cleanup tooling calls this.
func (m *CastingManager) Delete(id uuid.UUID) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&CastingInvitation{}, "casting_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CastingSelection{}, "casting_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CreatorSubmission{}, "casting_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CastingBriefingLink{}, "casting_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Casting{}, "id = ?", id).Error
	})
}

// UpdateStatusIf flips the casting status from an expected prior status to a
// new one in a single conditional UPDATE. It returns true when the row was
// actually updated; false means another actor already moved the casting on,
// and the caller must skip its side effects. This is the optimistic
// concurrency guard for every status transition.
func (m *CastingManager) UpdateStatusIf(id uuid.UUID, from, to CastingStatus) (bool, error) {
	result := m.db.Model(&Casting{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Save saves the casting's own columns, leaving preloaded associations and
// status alone. Status only moves through UpdateStatusIf, so a save with a
// stale in-memory copy cannot undo a concurrent transition.
func (c *Casting) Save(db *gorm.DB) error {
	return db.Omit(clause.Associations, "status").Save(c).Error
}

// ApprovedBriefingCount counts linked briefings whose status is approved.
func (c *Casting) ApprovedBriefingCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&CastingBriefingLink{}).
		Joins("JOIN briefings ON briefings.id = casting_briefing_links.briefing_id").
		Where("casting_briefing_links.casting_id = ? AND briefings.status = ?", c.ID, BriefingApproved).
		Count(&count).Error
	return count, err
}

// LinkedBriefingCount counts all briefings linked to the casting.
func (c *Casting) LinkedBriefingCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&CastingBriefingLink{}).
		Where("casting_id = ?", c.ID).
		Count(&count).Error
	return count, err
}
