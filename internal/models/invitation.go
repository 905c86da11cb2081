package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CastingInvitation is one creator's invitation to one casting. The
// (casting_id, creator_id) pair is unique at the store level so a
// double-submitted invitation batch cannot create duplicate rows.
type CastingInvitation struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CastingID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_casting_creator" json:"casting_id"`
	CreatorID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_casting_creator" json:"creator_id"`
	Status          InvitationStatus `gorm:"column:status;default:'pending'" json:"status"`
	RejectionReason *string          `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	RespondedAt     *time.Time       `gorm:"column:responded_at" json:"responded_at,omitempty"`
	CreatedAt       time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Casting Casting `gorm:"foreignKey:CastingID" json:"casting,omitempty"`
	Creator Creator `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

// TableName specifies the table name for the CastingInvitation model
func (CastingInvitation) TableName() string {
	return "casting_invitations"
}

// CastingInvitationManager provides Django-like ORM methods for CastingInvitation
type CastingInvitationManager struct {
	db *gorm.DB
}

// NewCastingInvitationManager creates a new CastingInvitationManager instance
func NewCastingInvitationManager(db *gorm.DB) *CastingInvitationManager {
	return &CastingInvitationManager{db: db}
}

// Create creates a new invitation
func (m *CastingInvitationManager) Create(invitation *CastingInvitation) error {
	return m.db.Create(invitation).Error
}

// BulkCreate inserts one pending invitation per creator for a casting.
func (m *CastingInvitationManager) BulkCreate(castingID uuid.UUID, creatorIDs []uuid.UUID) ([]CastingInvitation, error) {
	invitations := make([]CastingInvitation, 0, len(creatorIDs))
	for _, creatorID := range creatorIDs {
		invitations = append(invitations, CastingInvitation{
			CastingID: castingID,
			CreatorID: creatorID,
			Status:    InvitationPending,
		})
	}
	if err := m.db.CreateInBatches(invitations, 100).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// Get retrieves an invitation by ID with its casting and creator preloaded
func (m *CastingInvitationManager) Get(id uuid.UUID) (*CastingInvitation, error) {
	var invitation CastingInvitation
	err := m.db.Preload("Casting").Preload("Creator").First(&invitation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ForCasting retrieves all invitations for a casting with creators preloaded
func (m *CastingInvitationManager) ForCasting(castingID uuid.UUID) ([]CastingInvitation, error) {
	var invitations []CastingInvitation
	err := m.db.Preload("Creator").Where("casting_id = ?", castingID).Find(&invitations).Error
	return invitations, err
}

// ForCreator retrieves all invitations addressed to a creator
func (m *CastingInvitationManager) ForCreator(creatorID uuid.UUID) ([]CastingInvitation, error) {
	var invitations []CastingInvitation
	err := m.db.Preload("Casting").Where("creator_id = ?", creatorID).
		Order("created_at DESC").Find(&invitations).Error
	return invitations, err
}

// CountByStatus counts a casting's invitations in the given status.
func (m *CastingInvitationManager) CountByStatus(castingID uuid.UUID, status InvitationStatus) (int64, error) {
	var count int64
	err := m.db.Model(&CastingInvitation{}).
		Where("casting_id = ? AND status = ?", castingID, status).
		Count(&count).Error
	return count, err
}

// Count counts all invitations for a casting.
func (m *CastingInvitationManager) Count(castingID uuid.UUID) (int64, error) {
	var count int64
	err := m.db.Model(&CastingInvitation{}).Where("casting_id = ?", castingID).Count(&count).Error
	return count, err
}

// Update updates an invitation
func (m *CastingInvitationManager) Update(invitation *CastingInvitation) error {
	return m.db.Save(invitation).Error
}

// Accept flips a pending invitation to accepted and stamps responded_at in
// a single conditional UPDATE. It returns false when the invitation was
// already answered; the caller must then skip its side effects.
func (inv *CastingInvitation) Accept(db *gorm.DB) (bool, error) {
	now := time.Now().UTC()
	result := db.Model(&CastingInvitation{}).
		Where("id = ? AND status = ?", inv.ID, InvitationPending).
		Updates(map[string]interface{}{
			"status":       InvitationAccepted,
			"responded_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	inv.Status = InvitationAccepted
	inv.RespondedAt = &now
	return true, nil
}

// Reject flips a pending invitation to rejected with an optional reason,
// under the same conditional-update guard as Accept.
func (inv *CastingInvitation) Reject(db *gorm.DB, reason string) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       InvitationRejected,
		"responded_at": now,
		"updated_at":   now,
	}
	if reason != "" {
		updates["rejection_reason"] = reason
	}
	result := db.Model(&CastingInvitation{}).
		Where("id = ? AND status = ?", inv.ID, InvitationPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	inv.Status = InvitationRejected
	inv.RespondedAt = &now
	if reason != "" {
		inv.RejectionReason = &reason
	}
	return true, nil
}

// IsPending reports whether the creator has not responded yet.
func (inv *CastingInvitation) IsPending() bool {
	return inv.Status == InvitationPending
}
