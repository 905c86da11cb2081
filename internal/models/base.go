package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Custom types to match PostgreSQL enums
type CastingStatus string
type InvitationStatus string
type SelectionRole string
type BriefingStatus string
type SubmissionStatus string
type AutomationRunStatus string
type ActionType string

const (
	// Casting statuses
	CastingDraft              CastingStatus = "draft"
	CastingInviting           CastingStatus = "inviting"
	CastingCheckIntern        CastingStatus = "check_intern"
	CastingSendClientFeedback CastingStatus = "send_client_feedback"
	CastingApprovedByClient   CastingStatus = "approved_by_client"
	CastingShooting           CastingStatus = "shooting"
	CastingDone               CastingStatus = "done"

	// Invitation statuses
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"

	// Who made a selection
	SelectedBySocialBubble SelectionRole = "social_bubble"
	SelectedByClient       SelectionRole = "client"

	// Briefing statuses
	BriefingDraft         BriefingStatus = "draft"
	BriefingPendingClient BriefingStatus = "pending_client"
	BriefingApproved      BriefingStatus = "approved"

	// Creator submission statuses
	SubmissionPending           SubmissionStatus = "pending"
	SubmissionPendingReview     SubmissionStatus = "pending_review"
	SubmissionRevisionRequested SubmissionStatus = "revision_requested"
	SubmissionApproved          SubmissionStatus = "approved"

	// Automation log statuses
	RunSuccess AutomationRunStatus = "success"
	RunFailed  AutomationRunStatus = "failed"
	RunTest    AutomationRunStatus = "test"
	RunSkipped AutomationRunStatus = "skipped"

	// Automation action types (email and webhook are reserved)
	ActionSlackNotification ActionType = "slack_notification"
	ActionEmail             ActionType = "email"
	ActionWebhook           ActionType = "webhook"
)

// ValidCastingStatuses lists every status a casting may hold.
var ValidCastingStatuses = []CastingStatus{
	CastingDraft, CastingInviting, CastingCheckIntern, CastingSendClientFeedback,
	CastingApprovedByClient, CastingShooting, CastingDone,
}

// IsValid reports whether the status is one of the defined casting statuses.
func (s CastingStatus) IsValid() bool {
	for _, v := range ValidCastingStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// JSONB handles JSON data storage
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("unsupported type for JSONB")
	}
}

// BaseModel contains common fields for all models
type BaseModel struct {
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;column:deleted_at" json:"deleted_at,omitempty"`
}
