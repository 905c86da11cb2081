package automation

import "sort"

// Workflow trigger names fired by the casting orchestrator.
const (
	TriggerInvitationAccepted = "casting_invitation_accepted"
	TriggerCastingApproved    = "casting_approved"
	TriggerStatusChanged      = "casting_status_changed"
)

// TriggerDef describes a workflow event and the parameter fields it carries.
// The registry is compile-time: adding a trigger means adding a definition
// here, and condition fields on rules are validated against it.
type TriggerDef struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// appUrl is injected into every trigger's parameter bag by the engine, so it
// is a valid condition/template field for all triggers.
var commonParameters = []string{"appUrl"}

var registry = map[string]TriggerDef{
	TriggerInvitationAccepted: {
		Name:        TriggerInvitationAccepted,
		Description: "A creator accepted their casting invitation",
		Parameters: []string{
			"castingId", "castingTitle", "clientName",
			"creatorId", "creatorName",
			"invitedCount", "acceptedCount", "briefingStatus",
		},
	},
	TriggerCastingApproved: {
		Name:        TriggerCastingApproved,
		Description: "The client approved the final creator selection",
		Parameters: []string{
			"castingId", "castingTitle", "clientName",
			"chosenCreatorsCount", "briefingStatus", "briefingCount",
			"approvedBy",
		},
	},
	TriggerStatusChanged: {
		Name:        TriggerStatusChanged,
		Description: "A casting moved to a new workflow status",
		Parameters: []string{
			"castingId", "castingTitle", "clientName",
			"previousStatus", "newStatus",
			"invitationCount", "acceptedCount", "selectionCount",
			"changedBy",
		},
	},
}

// LookupTrigger returns the definition for a trigger name.
func LookupTrigger(name string) (TriggerDef, bool) {
	def, ok := registry[name]
	return def, ok
}

// Triggers lists all registered trigger definitions, sorted by name.
func Triggers() []TriggerDef {
	defs := make([]TriggerDef, 0, len(registry))
	for _, def := range registry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// HasParameter reports whether a condition field is valid for this trigger.
func (d TriggerDef) HasParameter(field string) bool {
	for _, p := range commonParameters {
		if p == field {
			return true
		}
	}
	for _, p := range d.Parameters {
		if p == field {
			return true
		}
	}
	return false
}

// ValidateConditionFields returns the condition fields that are not part of
// the trigger's parameter schema.
func ValidateConditionFields(triggerName string, group ConditionGroup) []string {
	def, ok := LookupTrigger(triggerName)
	if !ok {
		return nil
	}
	var unknown []string
	for _, cond := range group.Conditions {
		if !def.HasParameter(cond.Field) {
			unknown = append(unknown, cond.Field)
		}
	}
	return unknown
}
