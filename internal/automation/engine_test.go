package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bubblecast/internal/models"
)

var testDB *models.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(
		ctx,
		"postgres:latest",
		tcpostgres.WithDatabase("test_db"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		log.Fatalf("could not start postgres container for tests: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("could not get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgresql://user:password@%s:%s/test_db?sslmode=disable", host, port.Port())
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("could not connect to test database: %v", err)
	}

	testDB = models.Wrap(gormDB)
	if err := testDB.AutoMigrate(); err != nil {
		log.Fatalf("could not migrate test database: %v", err)
	}

	exitCode := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("warning: could not terminate postgres container: %v", err)
	}
	os.Exit(exitCode)
}

type fakeExecutor struct {
	calls []map[string]interface{}
	err   error
}

func (f *fakeExecutor) Execute(ctx context.Context, cfg models.JSONB, params map[string]interface{}, isTest bool) error {
	snapshot := make(map[string]interface{}, len(params))
	for k, v := range params {
		snapshot[k] = v
	}
	f.calls = append(f.calls, snapshot)
	return f.err
}

func cleanAutomationTables(t *testing.T) {
	t.Helper()
	for _, table := range []string{"automation_logs", "automation_actions", "automation_rules"} {
		if err := testDB.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("could not clean %s: %v", table, err)
		}
	}
}

func seedRule(t *testing.T, conditions models.JSONB, enabled bool, order int) *models.AutomationRule {
	t.Helper()
	rule := &models.AutomationRule{
		TriggerName:    TriggerInvitationAccepted,
		Name:           fmt.Sprintf("rule-%d", order),
		Conditions:     conditions,
		Enabled:        enabled,
		ExecutionOrder: order,
	}
	if err := testDB.AutomationRules.Create(rule); err != nil {
		t.Fatalf("could not create rule: %v", err)
	}
	return rule
}

func seedAction(t *testing.T, rule *models.AutomationRule, order int) *models.AutomationAction {
	t.Helper()
	action := &models.AutomationAction{
		RuleID:         rule.ID,
		Type:           models.ActionSlackNotification,
		Configuration:  models.JSONB{"channel_id": "C123", "message_template": "hi"},
		Enabled:        true,
		ExecutionOrder: order,
	}
	if err := testDB.AutomationActions.Create(action); err != nil {
		t.Fatalf("could not create action: %v", err)
	}
	return action
}

func newTestEngine(executor ActionExecutor) *Engine {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	engine := NewEngine(testDB, "https://app.example.com", logger)
	engine.RegisterExecutor(models.ActionSlackNotification, executor)
	return engine
}

func TestEngineExecutesMatchingRule(t *testing.T) {
	cleanAutomationTables(t)

	rule := seedRule(t, models.JSONB{}, true, 0)
	action := seedAction(t, rule, 0)

	executor := &fakeExecutor{}
	engine := newTestEngine(executor)

	err := engine.Trigger(context.Background(), TriggerInvitationAccepted,
		map[string]interface{}{"creatorName": "Lena"}, TriggerOptions{ExecutedBy: "system"})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if len(executor.calls) != 1 {
		t.Fatalf("expected one execution, got %d", len(executor.calls))
	}
	if executor.calls[0]["appUrl"] != "https://app.example.com" {
		t.Errorf("expected appUrl to be injected, got %v", executor.calls[0]["appUrl"])
	}

	logs, err := testDB.AutomationLogs.ForTrigger(TriggerInvitationAccepted, 10)
	if err != nil {
		t.Fatalf("could not load logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logs))
	}
	if logs[0].Status != models.RunSuccess {
		t.Errorf("expected success status, got %s", logs[0].Status)
	}
	if logs[0].ActionID == nil || *logs[0].ActionID != action.ID {
		t.Error("expected log to reference the executed action")
	}
	if logs[0].ExecutedBy != "system" {
		t.Errorf("expected executed_by system, got %s", logs[0].ExecutedBy)
	}
	if logs[0].Parameters["creatorName"] != "Lena" {
		t.Error("expected full parameter snapshot on the log entry")
	}
}

func TestEngineLogsSkipOnConditionFailure(t *testing.T) {
	cleanAutomationTables(t)

	conditions := models.JSONB{
		"operator": "all",
		"conditions": []interface{}{
			map[string]interface{}{"field": "briefingStatus", "operator": "equals", "value": "ready"},
		},
	}
	rule := seedRule(t, conditions, true, 0)
	seedAction(t, rule, 0)

	executor := &fakeExecutor{}
	engine := newTestEngine(executor)

	err := engine.Trigger(context.Background(), TriggerInvitationAccepted,
		map[string]interface{}{"briefingStatus": "not_ready"}, TriggerOptions{})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if len(executor.calls) != 0 {
		t.Fatalf("expected no executions, got %d", len(executor.calls))
	}

	logs, _ := testDB.AutomationLogs.ForTrigger(TriggerInvitationAccepted, 10)
	if len(logs) != 1 {
		t.Fatalf("expected one skip log, got %d", len(logs))
	}
	if logs[0].Status != models.RunSkipped {
		t.Errorf("expected skipped status, got %s", logs[0].Status)
	}
	if logs[0].RuleID == nil || *logs[0].RuleID != rule.ID {
		t.Error("expected skip log to reference the rule")
	}
}

func TestEngineFailingRuleDoesNotHaltOthers(t *testing.T) {
	cleanAutomationTables(t)

	first := seedRule(t, models.JSONB{}, true, 0)
	seedAction(t, first, 0)
	second := seedRule(t, models.JSONB{}, true, 1)
	seedAction(t, second, 0)

	// One shared executor that fails every call; both rules must still run.
	executor := &fakeExecutor{err: errors.New("slack unavailable")}
	engine := newTestEngine(executor)

	err := engine.Trigger(context.Background(), TriggerInvitationAccepted,
		map[string]interface{}{}, TriggerOptions{})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	if len(executor.calls) != 2 {
		t.Fatalf("expected both rules to execute, got %d calls", len(executor.calls))
	}

	logs, _ := testDB.AutomationLogs.ForTrigger(TriggerInvitationAccepted, 10)
	if len(logs) != 2 {
		t.Fatalf("expected two log entries, got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.Status != models.RunFailed {
			t.Errorf("expected failed status, got %s", entry.Status)
		}
		if entry.ErrorMessage != "slack unavailable" {
			t.Errorf("expected error message recorded, got %q", entry.ErrorMessage)
		}
	}
}

func TestEngineTestModeLogsTestStatus(t *testing.T) {
	cleanAutomationTables(t)

	rule := seedRule(t, models.JSONB{}, true, 0)
	seedAction(t, rule, 0)

	executor := &fakeExecutor{}
	engine := newTestEngine(executor)

	err := engine.Trigger(context.Background(), TriggerInvitationAccepted,
		map[string]interface{}{}, TriggerOptions{IsTest: true, ExecutedBy: "ops@bubble.example"})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}

	logs, _ := testDB.AutomationLogs.ForTrigger(TriggerInvitationAccepted, 10)
	if len(logs) != 1 {
		t.Fatalf("expected one log entry, got %d", len(logs))
	}
	if logs[0].Status != models.RunTest {
		t.Errorf("expected test status, got %s", logs[0].Status)
	}
}

func TestEngineIgnoresDisabledRules(t *testing.T) {
	cleanAutomationTables(t)

	rule := seedRule(t, models.JSONB{}, false, 0)
	seedAction(t, rule, 0)

	executor := &fakeExecutor{}
	engine := newTestEngine(executor)

	err := engine.Trigger(context.Background(), TriggerInvitationAccepted,
		map[string]interface{}{}, TriggerOptions{})
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if len(executor.calls) != 0 {
		t.Errorf("expected no executions for disabled rule, got %d", len(executor.calls))
	}
}

func TestEngineRejectsUnknownTrigger(t *testing.T) {
	engine := newTestEngine(&fakeExecutor{})
	err := engine.Trigger(context.Background(), "no_such_trigger", nil, TriggerOptions{})
	if err == nil {
		t.Fatal("expected error for unknown trigger")
	}
}
