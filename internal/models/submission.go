package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreatorSubmission tracks one confirmed creator's deliverable lifecycle
// within a casting. A row is created when the creator is confirmed for
// shooting and is never deleted outside test cleanup.
type CreatorSubmission struct {
	ID                  uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CastingID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submission_casting_creator" json:"casting_id"`
	CreatorID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submission_casting_creator" json:"creator_id"`
	SubmissionStatus    SubmissionStatus `gorm:"column:submission_status;default:'pending'" json:"submission_status"`
	ContentUploadLink   string           `gorm:"column:content_upload_link" json:"content_upload_link"`
	DriveFolderID       string           `gorm:"column:drive_folder_id" json:"drive_folder_id"`
	DriveFolderURL      string           `gorm:"column:drive_folder_url" json:"drive_folder_url"`
	FolderProvisionedAt *time.Time       `gorm:"column:folder_provisioned_at" json:"folder_provisioned_at,omitempty"`
	SubmittedAt         *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	Feedback            string           `gorm:"column:feedback" json:"feedback"`
	ApprovedBy          *int             `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time       `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CreatedAt           time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Casting Casting `gorm:"foreignKey:CastingID" json:"casting,omitempty"`
	Creator Creator `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

// TableName specifies the table name for the CreatorSubmission model
func (CreatorSubmission) TableName() string {
	return "creator_submissions"
}

// CreatorSubmissionManager provides Django-like ORM methods for CreatorSubmission
type CreatorSubmissionManager struct {
	db *gorm.DB
}

// NewCreatorSubmissionManager creates a new CreatorSubmissionManager instance
func NewCreatorSubmissionManager(db *gorm.DB) *CreatorSubmissionManager {
	return &CreatorSubmissionManager{db: db}
}

// Create creates a new submission row
func (m *CreatorSubmissionManager) Create(submission *CreatorSubmission) error {
	return m.db.Create(submission).Error
}

// GetOrCreate returns the submission for a (casting, creator) pair, creating
// a pending row when none exists yet.
func (m *CreatorSubmissionManager) GetOrCreate(castingID, creatorID uuid.UUID) (*CreatorSubmission, error) {
	var submission CreatorSubmission
	err := m.db.Where("casting_id = ? AND creator_id = ?", castingID, creatorID).First(&submission).Error
	if err == gorm.ErrRecordNotFound {
		submission = CreatorSubmission{
			CastingID:        castingID,
			CreatorID:        creatorID,
			SubmissionStatus: SubmissionPending,
		}
		if err := m.db.Create(&submission).Error; err != nil {
			return nil, err
		}
		return &submission, nil
	}
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetByCastingAndCreator retrieves the submission for a (casting, creator) pair
func (m *CreatorSubmissionManager) GetByCastingAndCreator(castingID, creatorID uuid.UUID) (*CreatorSubmission, error) {
	var submission CreatorSubmission
	err := m.db.Where("casting_id = ? AND creator_id = ?", castingID, creatorID).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// ForCasting retrieves all submissions for a casting with creators preloaded
func (m *CreatorSubmissionManager) ForCasting(castingID uuid.UUID) ([]CreatorSubmission, error) {
	var submissions []CreatorSubmission
	err := m.db.Preload("Creator").Where("casting_id = ?", castingID).Find(&submissions).Error
	return submissions, err
}

// Update updates a submission
func (m *CreatorSubmissionManager) Update(submission *CreatorSubmission) error {
	return m.db.Save(submission).Error
}

// UpdateStatusIf flips the submission status only when it still holds one of
// the expected prior statuses. Returns whether a row was updated.
func (m *CreatorSubmissionManager) UpdateStatusIf(id uuid.UUID, from []SubmissionStatus, to SubmissionStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"submission_status": to,
		"updated_at":        time.Now().UTC(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	result := m.db.Model(&CreatorSubmission{}).
		Where("id = ? AND submission_status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// StampFolder records the provisioned storage folder on the submission.
func (s *CreatorSubmission) StampFolder(db *gorm.DB, folderID, folderURL string) error {
	now := time.Now().UTC()
	s.DriveFolderID = folderID
	s.DriveFolderURL = folderURL
	s.FolderProvisionedAt = &now
	return db.Save(s).Error
}
