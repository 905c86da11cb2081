// Package automation implements the rule-based automation layer: a compile-time
// trigger registry, a pure condition evaluator, parameter substitution for
// message templates, and an engine that executes configured actions and logs
// every attempt.
package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"bubblecast/internal/models"
)

// Condition compares one parameter field against a value.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// ConditionGroup is the condition tree stored on an automation rule. An
// "all" group requires every condition to hold; an "any" group requires at
// least one. An empty group always matches.
type ConditionGroup struct {
	Operator   string      `json:"operator"`
	Conditions []Condition `json:"conditions"`
}

// Supported condition operators.
const (
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpGreaterThan        = "greater_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThan           = "less_than"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpContains           = "contains"
	OpNotContains        = "not_contains"
	OpIsEmpty            = "is_empty"
	OpIsNotEmpty         = "is_not_empty"
	OpIn                 = "in"
	OpNotIn              = "not_in"
)

// ParseConditionGroup decodes the JSONB condition document stored on a rule.
func ParseConditionGroup(doc models.JSONB) (ConditionGroup, error) {
	var group ConditionGroup
	if len(doc) == 0 {
		return group, nil
	}
	raw, err := json.Marshal(map[string]interface{}(doc))
	if err != nil {
		return group, err
	}
	if err := json.Unmarshal(raw, &group); err != nil {
		return group, err
	}
	return group, nil
}

// Matches evaluates the group against a parameter bag. Unknown operators
// evaluate to false (fail-closed) with a logged warning.
func (g ConditionGroup) Matches(params map[string]interface{}, logger *logrus.Logger) bool {
	if len(g.Conditions) == 0 {
		return true
	}

	anyMode := g.Operator == "any"
	for _, cond := range g.Conditions {
		ok := evaluateCondition(cond, params, logger)
		if anyMode && ok {
			return true
		}
		if !anyMode && !ok {
			return false
		}
	}
	return !anyMode
}

func evaluateCondition(cond Condition, params map[string]interface{}, logger *logrus.Logger) bool {
	actual, present := params[cond.Field]

	switch cond.Operator {
	case OpEquals:
		return stringify(actual) == stringify(cond.Value)
	case OpNotEquals:
		return stringify(actual) != stringify(cond.Value)
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		if !aok || !bok {
			return false
		}
		switch cond.Operator {
		case OpGreaterThan:
			return a > b
		case OpGreaterThanOrEqual:
			return a >= b
		case OpLessThan:
			return a < b
		default:
			return a <= b
		}
	case OpContains:
		return containsValue(actual, cond.Value)
	case OpNotContains:
		return !containsValue(actual, cond.Value)
	case OpIsEmpty:
		return !present || isEmptyValue(actual)
	case OpIsNotEmpty:
		return present && !isEmptyValue(actual)
	case OpIn:
		return inList(actual, cond.Value)
	case OpNotIn:
		return !inList(actual, cond.Value)
	default:
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"operator": cond.Operator,
				"field":    cond.Field,
			}).Warn("unknown condition operator, evaluating to false")
		}
		return false
	}
}

// stringify normalizes a value for equality comparison so that JSON numbers
// and their string forms compare equal.
func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// containsValue implements substring match for strings and membership for
// slices.
func containsValue(actual, needle interface{}) bool {
	switch a := actual.(type) {
	case string:
		return strings.Contains(a, stringify(needle))
	case []interface{}:
		for _, item := range a {
			if stringify(item) == stringify(needle) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range a {
			if item == stringify(needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inList tests the parameter value against a list condition value.
func inList(actual, list interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if stringify(item) == stringify(actual) {
			return true
		}
	}
	return false
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	default:
		return false
	}
}
