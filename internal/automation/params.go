package automation

import (
	"fmt"
	"regexp"
)

// TestPrefix marks messages produced by test-mode executions.
const TestPrefix = "[TEST] "

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// SubstituteString replaces every {{name}} placeholder in the template with
// the corresponding parameter value. Placeholders without a matching
// parameter render as an empty string rather than leaking the raw marker.
func SubstituteString(template string, params map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := params[name]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

// SubstituteValue walks an arbitrary JSON document (maps, slices, scalars)
// and substitutes placeholders in every string leaf. Non-string leaves pass
// through untouched, so block templates keep their structure.
func SubstituteValue(v interface{}, params map[string]interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return SubstituteString(val, params)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = SubstituteValue(item, params)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = SubstituteValue(item, params)
		}
		return out
	default:
		return v
	}
}
