package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutomationRule is a user-configured rule evaluated when its trigger fires.
// Conditions holds a condition group document ({"operator":"all","conditions":
// [...]}); an empty group always matches. Rules run in execution order.
type AutomationRule struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TriggerName    string    `gorm:"column:trigger_name;not null;index" json:"trigger_name"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	Conditions     JSONB     `gorm:"column:conditions;type:jsonb;default:'{}'" json:"conditions"`
	Enabled        bool      `gorm:"column:enabled;default:true" json:"enabled"`
	ExecutionOrder int       `gorm:"column:execution_order;default:0" json:"execution_order"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Actions []AutomationAction `gorm:"foreignKey:RuleID" json:"actions,omitempty"`
}

// TableName specifies the table name for the AutomationRule model
func (AutomationRule) TableName() string {
	return "automation_rules"
}

// AutomationAction is one typed action of a rule. Configuration carries the
// executor-specific payload (for slack_notification: channel_id plus
// message_template or blocks_template).
type AutomationAction struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RuleID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"rule_id"`
	Type           ActionType `gorm:"column:type;not null" json:"type"`
	Configuration  JSONB      `gorm:"column:configuration;type:jsonb;default:'{}'" json:"configuration"`
	Enabled        bool       `gorm:"column:enabled;default:true" json:"enabled"`
	ExecutionOrder int        `gorm:"column:execution_order;default:0" json:"execution_order"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`

	// Associations
	Rule AutomationRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}

// TableName specifies the table name for the AutomationAction model
func (AutomationAction) TableName() string {
	return "automation_actions"
}

// AutomationLog is the append-only record of every execution attempt,
// including skips, with a full parameter snapshot for audit.
type AutomationLog struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TriggerName  string              `gorm:"column:trigger_name;not null;index" json:"trigger_name"`
	RuleID       *uuid.UUID          `gorm:"type:uuid;column:rule_id" json:"rule_id,omitempty"`
	ActionID     *uuid.UUID          `gorm:"type:uuid;column:action_id" json:"action_id,omitempty"`
	Parameters   JSONB               `gorm:"column:parameters;type:jsonb;default:'{}'" json:"parameters"`
	Status       AutomationRunStatus `gorm:"column:status;not null;index" json:"status"`
	ErrorMessage string              `gorm:"column:error_message" json:"error_message"`
	ExecutedBy   string              `gorm:"column:executed_by" json:"executed_by"`
	ExecutedAt   time.Time           `gorm:"column:executed_at" json:"executed_at"`
}

// TableName specifies the table name for the AutomationLog model
func (AutomationLog) TableName() string {
	return "automation_logs"
}

// AutomationRuleManager provides Django-like ORM methods for AutomationRule
type AutomationRuleManager struct {
	db *gorm.DB
}

// NewAutomationRuleManager creates a new AutomationRuleManager instance
func NewAutomationRuleManager(db *gorm.DB) *AutomationRuleManager {
	return &AutomationRuleManager{db: db}
}

// Create creates a new rule
func (m *AutomationRuleManager) Create(rule *AutomationRule) error {
	return m.db.Create(rule).Error
}

// Get retrieves a rule by ID with its actions preloaded
func (m *AutomationRuleManager) Get(id uuid.UUID) (*AutomationRule, error) {
	var rule AutomationRule
	err := m.db.Preload("Actions").First(&rule, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// EnabledForTrigger retrieves all enabled rules for a trigger in execution order.
func (m *AutomationRuleManager) EnabledForTrigger(triggerName string) ([]AutomationRule, error) {
	var rules []AutomationRule
	err := m.db.Where("trigger_name = ? AND enabled = ?", triggerName, true).
		Order("execution_order ASC").Find(&rules).Error
	return rules, err
}

// ForTrigger retrieves all rules for a trigger, enabled or not.
func (m *AutomationRuleManager) ForTrigger(triggerName string) ([]AutomationRule, error) {
	var rules []AutomationRule
	err := m.db.Preload("Actions").Where("trigger_name = ?", triggerName).
		Order("execution_order ASC").Find(&rules).Error
	return rules, err
}

// Update updates a rule
func (m *AutomationRuleManager) Update(rule *AutomationRule) error {
	return m.db.Save(rule).Error
}

// Delete deletes a rule and its actions. It reports whether the rule existed.
func (m *AutomationRuleManager) Delete(id uuid.UUID) (bool, error) {
	var deleted bool
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&AutomationAction{}, "rule_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&AutomationRule{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// AutomationActionManager provides Django-like ORM methods for AutomationAction
type AutomationActionManager struct {
	db *gorm.DB
}

// NewAutomationActionManager creates a new AutomationActionManager instance
func NewAutomationActionManager(db *gorm.DB) *AutomationActionManager {
	return &AutomationActionManager{db: db}
}

// Create creates a new action
func (m *AutomationActionManager) Create(action *AutomationAction) error {
	return m.db.Create(action).Error
}

// Get retrieves an action by ID
func (m *AutomationActionManager) Get(id uuid.UUID) (*AutomationAction, error) {
	var action AutomationAction
	err := m.db.First(&action, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &action, nil
}

// EnabledForRule retrieves a rule's enabled actions in execution order.
func (m *AutomationActionManager) EnabledForRule(ruleID uuid.UUID) ([]AutomationAction, error) {
	var actions []AutomationAction
	err := m.db.Where("rule_id = ? AND enabled = ?", ruleID, true).
		Order("execution_order ASC").Find(&actions).Error
	return actions, err
}

// Update updates an action
func (m *AutomationActionManager) Update(action *AutomationAction) error {
	return m.db.Save(action).Error
}

// Delete deletes an action. It reports whether the action existed.
func (m *AutomationActionManager) Delete(id uuid.UUID) (bool, error) {
	result := m.db.Delete(&AutomationAction{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AutomationLogManager provides Django-like ORM methods for AutomationLog
type AutomationLogManager struct {
	db *gorm.DB
}

// NewAutomationLogManager creates a new AutomationLogManager instance
func NewAutomationLogManager(db *gorm.DB) *AutomationLogManager {
	return &AutomationLogManager{db: db}
}

// Create appends a log entry. Logs are never updated or deleted.
func (m *AutomationLogManager) Create(entry *AutomationLog) error {
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now().UTC()
	}
	return m.db.Create(entry).Error
}

// Recent retrieves the most recent log entries, newest first.
func (m *AutomationLogManager) Recent(limit int) ([]AutomationLog, error) {
	var logs []AutomationLog
	err := m.db.Order("executed_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ForTrigger retrieves the most recent log entries for one trigger.
func (m *AutomationLogManager) ForTrigger(triggerName string, limit int) ([]AutomationLog, error) {
	var logs []AutomationLog
	err := m.db.Where("trigger_name = ?", triggerName).
		Order("executed_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
