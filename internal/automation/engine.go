package automation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bubblecast/internal/models"
)

// ActionExecutor sends one configured action. Implementations return an
// error for the log record; they never panic past this boundary.
type ActionExecutor interface {
	Execute(ctx context.Context, cfg models.JSONB, params map[string]interface{}, isTest bool) error
}

// TriggerOptions carries per-invocation metadata.
type TriggerOptions struct {
	IsTest     bool
	ExecutedBy string
}

// Engine evaluates automation rules for workflow triggers and executes their
// actions, appending a log entry for every attempt including skips.
type Engine struct {
	db        *models.DB
	executors map[models.ActionType]ActionExecutor
	appURL    string
	logger    *logrus.Logger
}

// NewEngine creates an automation engine. appURL is injected into every
// parameter bag so rules and templates can link back into the app.
func NewEngine(db *models.DB, appURL string, logger *logrus.Logger) *Engine {
	return &Engine{
		db:        db,
		executors: make(map[models.ActionType]ActionExecutor),
		appURL:    appURL,
		logger:    logger,
	}
}

// RegisterExecutor wires an executor for an action type.
func (e *Engine) RegisterExecutor(t models.ActionType, executor ActionExecutor) {
	e.executors[t] = executor
}

// Trigger runs all enabled rules for a trigger against the parameter bag.
// A failing rule or action never halts the others; only a failure to load
// the rules themselves is returned to the caller.
func (e *Engine) Trigger(ctx context.Context, triggerName string, params map[string]interface{}, opts TriggerOptions) error {
	if _, ok := LookupTrigger(triggerName); !ok {
		return fmt.Errorf("unknown automation trigger: %s", triggerName)
	}

	bag := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		bag[k] = v
	}
	bag["appUrl"] = e.appURL

	rules, err := e.db.AutomationRules.EnabledForTrigger(triggerName)
	if err != nil {
		return fmt.Errorf("could not load automation rules: %w", err)
	}

	for _, rule := range rules {
		e.runRule(ctx, rule, triggerName, bag, opts)
	}
	return nil
}

func (e *Engine) runRule(ctx context.Context, rule models.AutomationRule, triggerName string, bag map[string]interface{}, opts TriggerOptions) {
	ruleID := rule.ID
	log := e.logger.WithFields(logrus.Fields{
		"trigger": triggerName,
		"rule":    rule.Name,
	})

	group, err := ParseConditionGroup(rule.Conditions)
	if err != nil {
		log.WithError(err).Error("invalid condition document on rule")
		e.appendLog(triggerName, &ruleID, nil, bag, models.RunFailed, "invalid conditions: "+err.Error(), opts.ExecutedBy)
		return
	}

	if !group.Matches(bag, e.logger) {
		e.appendLog(triggerName, &ruleID, nil, bag, models.RunSkipped, "", opts.ExecutedBy)
		return
	}

	actions, err := e.db.AutomationActions.EnabledForRule(rule.ID)
	if err != nil {
		log.WithError(err).Error("could not load rule actions")
		e.appendLog(triggerName, &ruleID, nil, bag, models.RunFailed, "could not load actions: "+err.Error(), opts.ExecutedBy)
		return
	}

	for _, action := range actions {
		actionID := action.ID
		executor, ok := e.executors[action.Type]
		if !ok {
			e.appendLog(triggerName, &ruleID, &actionID, bag, models.RunFailed,
				fmt.Sprintf("no executor registered for action type %s", action.Type), opts.ExecutedBy)
			continue
		}

		execErr := executor.Execute(ctx, action.Configuration, bag, opts.IsTest)
		status := models.RunSuccess
		errMsg := ""
		switch {
		case execErr != nil:
			status = models.RunFailed
			errMsg = execErr.Error()
			log.WithError(execErr).WithField("action", actionID).Warn("automation action failed")
		case opts.IsTest:
			status = models.RunTest
		}
		e.appendLog(triggerName, &ruleID, &actionID, bag, status, errMsg, opts.ExecutedBy)
	}
}

// appendLog records an execution attempt with the full parameter snapshot.
// Logging failures are reported but never bubble up.
func (e *Engine) appendLog(triggerName string, ruleID, actionID *uuid.UUID, bag map[string]interface{}, status models.AutomationRunStatus, errMsg, executedBy string) {
	entry := &models.AutomationLog{
		TriggerName:  triggerName,
		RuleID:       ruleID,
		ActionID:     actionID,
		Parameters:   models.JSONB(bag),
		Status:       status,
		ErrorMessage: errMsg,
		ExecutedBy:   executedBy,
	}
	if err := e.db.AutomationLogs.Create(entry); err != nil {
		e.logger.WithError(err).WithField("trigger", triggerName).Error("could not append automation log")
	}
}
