package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CastingSelection records that a creator was selected for a casting, tagged
// with which side made the pick. Rows are append-only: a casting keeps both
// the internal shortlist generation and the client's final generation for
// audit, and re-shortlisting appends rather than upserts.
type CastingSelection struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CastingID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"casting_id"`
	CreatorID      uuid.UUID     `gorm:"type:uuid;not null" json:"creator_id"`
	SelectedByRole SelectionRole `gorm:"column:selected_by_role;not null" json:"selected_by_role"`
	SelectedBy     int           `gorm:"column:selected_by" json:"selected_by"`
	CreatedAt      time.Time     `gorm:"column:created_at" json:"created_at"`

	// Associations
	Casting Casting `gorm:"foreignKey:CastingID" json:"casting,omitempty"`
	Creator Creator `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

// TableName specifies the table name for the CastingSelection model
func (CastingSelection) TableName() string {
	return "casting_selections"
}

// CastingSelectionManager provides Django-like ORM methods for CastingSelection
type CastingSelectionManager struct {
	db *gorm.DB
}

// NewCastingSelectionManager creates a new CastingSelectionManager instance
func NewCastingSelectionManager(db *gorm.DB) *CastingSelectionManager {
	return &CastingSelectionManager{db: db}
}

// BulkCreate inserts one selection row per creator, tagged with the selecting
// role and user. All rows are inserted or none.
func (m *CastingSelectionManager) BulkCreate(castingID uuid.UUID, creatorIDs []uuid.UUID, role SelectionRole, selectedBy int) ([]CastingSelection, error) {
	selections := make([]CastingSelection, 0, len(creatorIDs))
	for _, creatorID := range creatorIDs {
		selections = append(selections, CastingSelection{
			CastingID:      castingID,
			CreatorID:      creatorID,
			SelectedByRole: role,
			SelectedBy:     selectedBy,
		})
	}
	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(selections, 100).Error
	})
	if err != nil {
		return nil, err
	}
	return selections, nil
}

// ForCasting retrieves all selections for a casting, oldest first.
func (m *CastingSelectionManager) ForCasting(castingID uuid.UUID) ([]CastingSelection, error) {
	var selections []CastingSelection
	err := m.db.Preload("Creator").Where("casting_id = ?", castingID).
		Order("created_at ASC").Find(&selections).Error
	return selections, err
}

// ForCastingAndRole retrieves a casting's selections made by one role.
func (m *CastingSelectionManager) ForCastingAndRole(castingID uuid.UUID, role SelectionRole) ([]CastingSelection, error) {
	var selections []CastingSelection
	err := m.db.Preload("Creator").
		Where("casting_id = ? AND selected_by_role = ?", castingID, role).
		Order("created_at ASC").Find(&selections).Error
	return selections, err
}

// CountByRole counts a casting's selections made by one role.
func (m *CastingSelectionManager) CountByRole(castingID uuid.UUID, role SelectionRole) (int64, error) {
	var count int64
	err := m.db.Model(&CastingSelection{}).
		Where("casting_id = ? AND selected_by_role = ?", castingID, role).
		Count(&count).Error
	return count, err
}
