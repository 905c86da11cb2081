package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bubblecast/internal/automation"
	"bubblecast/internal/models"
)

type AutomationRoutes struct {
	server ServerInterface
}

func NewAutomationRoutes(server ServerInterface) *AutomationRoutes {
	return &AutomationRoutes{server: server}
}

func (ar *AutomationRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(ar.server)
	staff := []gin.HandlerFunc{middleware.AuthMiddleware(), middleware.AgencyOnly()}

	group := r.Group("/automation", staff...)
	group.GET("/triggers", ar.listTriggersHandler)
	group.GET("/rules", ar.listRulesHandler)
	group.POST("/rules", ar.createRuleHandler)
	group.GET("/rules/:id", ar.getRuleHandler)
	group.PATCH("/rules/:id", ar.updateRuleHandler)
	group.DELETE("/rules/:id", ar.deleteRuleHandler)
	group.POST("/rules/:id/actions", ar.createActionHandler)
	group.PATCH("/actions/:id", ar.updateActionHandler)
	group.DELETE("/actions/:id", ar.deleteActionHandler)
	group.POST("/test", ar.testTriggerHandler)
	group.GET("/logs", ar.listLogsHandler)
}

func (ar *AutomationRoutes) listTriggersHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"triggers": automation.Triggers()})
}

// validateConditions parses a conditions document and checks its fields
// against the trigger's parameter schema, writing the 400 itself.
func (ar *AutomationRoutes) validateConditions(c *gin.Context, triggerName string, conditions models.JSONB) bool {
	group, err := automation.ParseConditionGroup(conditions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conditions: " + err.Error()})
		return false
	}
	if unknown := automation.ValidateConditionFields(triggerName, group); len(unknown) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Conditions reference fields the trigger does not provide",
			"unknown_fields": unknown,
		})
		return false
	}
	return true
}

func (ar *AutomationRoutes) listRulesHandler(c *gin.Context) {
	triggerName := c.Query("trigger")
	if triggerName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trigger query parameter is required"})
		return
	}
	if _, ok := automation.LookupTrigger(triggerName); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown trigger"})
		return
	}

	rules, err := ar.server.GetDB().AutomationRules.ForTrigger(triggerName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules, "total": len(rules)})
}

func (ar *AutomationRoutes) createRuleHandler(c *gin.Context) {
	var req struct {
		TriggerName    string       `json:"trigger_name" binding:"required"`
		Name           string       `json:"name" binding:"required,min=1,max=200"`
		Conditions     models.JSONB `json:"conditions"`
		Enabled        *bool        `json:"enabled"`
		ExecutionOrder int          `json:"execution_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := automation.LookupTrigger(req.TriggerName); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown trigger: " + req.TriggerName})
		return
	}
	if req.Conditions == nil {
		req.Conditions = models.JSONB{}
	}
	if !ar.validateConditions(c, req.TriggerName, req.Conditions) {
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule := &models.AutomationRule{
		TriggerName:    req.TriggerName,
		Name:           req.Name,
		Conditions:     req.Conditions,
		Enabled:        enabled,
		ExecutionOrder: req.ExecutionOrder,
	}
	if err := ar.server.GetDB().AutomationRules.Create(rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (ar *AutomationRoutes) getRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	rule, err := ar.server.GetDB().AutomationRules.Get(ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rule"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (ar *AutomationRoutes) updateRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := ar.server.GetDB()
	rule, err := db.AutomationRules.Get(ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rule"})
		}
		return
	}

	var req struct {
		Name           *string      `json:"name"`
		Conditions     models.JSONB `json:"conditions"`
		Enabled        *bool        `json:"enabled"`
		ExecutionOrder *int         `json:"execution_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Conditions != nil {
		if !ar.validateConditions(c, rule.TriggerName, req.Conditions) {
			return
		}
		rule.Conditions = req.Conditions
	}
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.ExecutionOrder != nil {
		rule.ExecutionOrder = *req.ExecutionOrder
	}

	if err := db.AutomationRules.Update(rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (ar *AutomationRoutes) deleteRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := ar.server.GetDB().AutomationRules.Delete(ruleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}

func (ar *AutomationRoutes) createActionHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := ar.server.GetDB()
	if _, err := db.AutomationRules.Get(ruleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rule"})
		}
		return
	}

	var req struct {
		Type           string       `json:"type" binding:"required"`
		Configuration  models.JSONB `json:"configuration"`
		Enabled        *bool        `json:"enabled"`
		ExecutionOrder int          `json:"execution_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actionType := models.ActionType(req.Type)
	switch actionType {
	case models.ActionSlackNotification, models.ActionEmail, models.ActionWebhook:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action type: " + req.Type})
		return
	}
	if req.Configuration == nil {
		req.Configuration = models.JSONB{}
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	action := &models.AutomationAction{
		RuleID:         ruleID,
		Type:           actionType,
		Configuration:  req.Configuration,
		Enabled:        enabled,
		ExecutionOrder: req.ExecutionOrder,
	}
	if err := db.AutomationActions.Create(action); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create action"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"action": action})
}

func (ar *AutomationRoutes) updateActionHandler(c *gin.Context) {
	actionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := ar.server.GetDB()
	action, err := db.AutomationActions.Get(actionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Action not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch action"})
		}
		return
	}

	var req struct {
		Configuration  models.JSONB `json:"configuration"`
		Enabled        *bool        `json:"enabled"`
		ExecutionOrder *int         `json:"execution_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Configuration != nil {
		action.Configuration = req.Configuration
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}
	if req.ExecutionOrder != nil {
		action.ExecutionOrder = *req.ExecutionOrder
	}

	if err := db.AutomationActions.Update(action); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update action"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": action})
}

func (ar *AutomationRoutes) deleteActionHandler(c *gin.Context) {
	actionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := ar.server.GetDB().AutomationActions.Delete(actionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete action"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Action not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Action deleted"})
}

// testTriggerHandler fires a trigger with caller-supplied parameters in test
// mode: actions run for real but messages carry the test prefix and log
// entries record status test.
func (ar *AutomationRoutes) testTriggerHandler(c *gin.Context) {
	var req struct {
		TriggerName string                 `json:"trigger_name" binding:"required"`
		Parameters  map[string]interface{} `json:"parameters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := automation.LookupTrigger(req.TriggerName); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown trigger: " + req.TriggerName})
		return
	}
	if req.Parameters == nil {
		req.Parameters = map[string]interface{}{}
	}

	err := ar.server.GetEngine().Trigger(c.Request.Context(), req.TriggerName, req.Parameters, automation.TriggerOptions{
		IsTest:     true,
		ExecutedBy: currentRole(c).String(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test trigger fired"})
}

func (ar *AutomationRoutes) listLogsHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	db := ar.server.GetDB()
	var logs []models.AutomationLog
	if triggerName := c.Query("trigger"); triggerName != "" {
		logs, err = db.AutomationLogs.ForTrigger(triggerName, limit)
	} else {
		logs, err = db.AutomationLogs.Recent(limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "total": len(logs)})
}
