package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Briefing is the content document a client approves before shooting may
// proceed. Only an approved briefing triggers shooting-readiness effects.
type Briefing struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Content   JSONB          `gorm:"column:content;type:jsonb;default:'{}'" json:"content"`
	Status    BriefingStatus `gorm:"column:status;default:'draft'" json:"status"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Client Client                `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Links  []CastingBriefingLink `gorm:"foreignKey:BriefingID" json:"links,omitempty"`
}

// TableName specifies the table name for the Briefing model
func (Briefing) TableName() string {
	return "briefings"
}

// CastingBriefingLink joins castings and briefings many-to-many. Both ends
// must belong to the same client; the workflow layer enforces that before
// creating a link.
type CastingBriefingLink struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CastingID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_casting_briefing" json:"casting_id"`
	BriefingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_casting_briefing" json:"briefing_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`

	// Associations
	Casting  Casting  `gorm:"foreignKey:CastingID" json:"casting,omitempty"`
	Briefing Briefing `gorm:"foreignKey:BriefingID" json:"briefing,omitempty"`
}

// TableName specifies the table name for the CastingBriefingLink model
func (CastingBriefingLink) TableName() string {
	return "casting_briefing_links"
}

// BriefingManager provides Django-like ORM methods for Briefing
type BriefingManager struct {
	db *gorm.DB
}

// NewBriefingManager creates a new BriefingManager instance
func NewBriefingManager(db *gorm.DB) *BriefingManager {
	return &BriefingManager{db: db}
}

// Create creates a new briefing
func (m *BriefingManager) Create(briefing *Briefing) error {
	return m.db.Create(briefing).Error
}

// Get retrieves a briefing by ID
func (m *BriefingManager) Get(id uuid.UUID) (*Briefing, error) {
	var briefing Briefing
	err := m.db.First(&briefing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &briefing, nil
}

// All retrieves all briefings, newest first
func (m *BriefingManager) All() ([]Briefing, error) {
	var briefings []Briefing
	err := m.db.Order("created_at DESC").Find(&briefings).Error
	return briefings, err
}

// ForClient retrieves all briefings owned by a client
func (m *BriefingManager) ForClient(clientID uuid.UUID) ([]Briefing, error) {
	var briefings []Briefing
	err := m.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&briefings).Error
	return briefings, err
}

// AvailableForCasting retrieves the client's briefings not yet linked to the
// casting. Unlinking a briefing returns it to this list.
func (m *BriefingManager) AvailableForCasting(clientID, castingID uuid.UUID) ([]Briefing, error) {
	var briefings []Briefing
	err := m.db.
		Where("client_id = ?", clientID).
		Where("id NOT IN (?)", m.db.Model(&CastingBriefingLink{}).
			Select("briefing_id").Where("casting_id = ?", castingID)).
		Order("created_at DESC").
		Find(&briefings).Error
	return briefings, err
}

// Update updates a briefing
func (m *BriefingManager) Update(briefing *Briefing) error {
	return m.db.Save(briefing).Error
}

// Delete deletes a briefing
func (m *BriefingManager) Delete(id uuid.UUID) error {
	return m.db.Delete(&Briefing{}, "id = ?", id).Error
}

// CastingBriefingLinkManager provides Django-like ORM methods for CastingBriefingLink
type CastingBriefingLinkManager struct {
	db *gorm.DB
}

// NewCastingBriefingLinkManager creates a new CastingBriefingLinkManager instance
func NewCastingBriefingLinkManager(db *gorm.DB) *CastingBriefingLinkManager {
	return &CastingBriefingLinkManager{db: db}
}

// Create links a briefing to a casting
func (m *CastingBriefingLinkManager) Create(link *CastingBriefingLink) error {
	return m.db.Create(link).Error
}

// Delete unlinks a briefing from a casting
func (m *CastingBriefingLinkManager) Delete(castingID, briefingID uuid.UUID) error {
	return m.db.Where("casting_id = ? AND briefing_id = ?", castingID, briefingID).
		Delete(&CastingBriefingLink{}).Error
}

// ForCasting retrieves a casting's briefing links with briefings preloaded
func (m *CastingBriefingLinkManager) ForCasting(castingID uuid.UUID) ([]CastingBriefingLink, error) {
	var links []CastingBriefingLink
	err := m.db.Preload("Briefing").Where("casting_id = ?", castingID).Find(&links).Error
	return links, err
}

// CastingsForBriefing retrieves every casting linked to a briefing. Briefing
// approval fans out over this list.
func (m *CastingBriefingLinkManager) CastingsForBriefing(briefingID uuid.UUID) ([]Casting, error) {
	var castings []Casting
	err := m.db.
		Joins("JOIN casting_briefing_links ON casting_briefing_links.casting_id = castings.id").
		Where("casting_briefing_links.briefing_id = ?", briefingID).
		Find(&castings).Error
	return castings, err
}

// Exists reports whether a link already exists for the pair.
func (m *CastingBriefingLinkManager) Exists(castingID, briefingID uuid.UUID) (bool, error) {
	var count int64
	err := m.db.Model(&CastingBriefingLink{}).
		Where("casting_id = ? AND briefing_id = ?", castingID, briefingID).
		Count(&count).Error
	return count > 0, err
}
