package automation

import (
	"reflect"
	"testing"
)

func TestSubstituteString(t *testing.T) {
	params := map[string]interface{}{
		"creatorName":  "Lena",
		"castingTitle": "Summer Launch",
		"count":        float64(4),
	}

	cases := []struct {
		template string
		want     string
	}{
		{"{{creatorName}} accepted {{castingTitle}}", "Lena accepted Summer Launch"},
		{"{{ creatorName }} accepted", "Lena accepted"},
		{"{{count}} creators", "4 creators"},
		{"hello {{missing}}!", "hello !"},
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := SubstituteString(tc.template, params); got != tc.want {
			t.Errorf("SubstituteString(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}

func TestSubstituteValueRecursesStringLeaves(t *testing.T) {
	params := map[string]interface{}{"castingTitle": "Summer Launch"}
	in := map[string]interface{}{
		"type": "section",
		"text": map[string]interface{}{
			"type": "mrkdwn",
			"text": "New casting: {{castingTitle}}",
		},
		"fields": []interface{}{"{{castingTitle}}", float64(2)},
	}

	got := SubstituteValue(in, params)
	want := map[string]interface{}{
		"type": "section",
		"text": map[string]interface{}{
			"type": "mrkdwn",
			"text": "New casting: Summer Launch",
		},
		"fields": []interface{}{"Summer Launch", float64(2)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SubstituteValue = %#v, want %#v", got, want)
	}
}

func TestTriggerRegistry(t *testing.T) {
	def, ok := LookupTrigger(TriggerInvitationAccepted)
	if !ok {
		t.Fatal("expected casting_invitation_accepted to be registered")
	}
	if !def.HasParameter("creatorName") {
		t.Error("expected creatorName to be a valid parameter")
	}
	if !def.HasParameter("appUrl") {
		t.Error("expected appUrl to be valid for every trigger")
	}
	if def.HasParameter("bogus") {
		t.Error("did not expect bogus to be a valid parameter")
	}

	if _, ok := LookupTrigger("no_such_trigger"); ok {
		t.Error("did not expect unknown trigger to resolve")
	}

	unknown := ValidateConditionFields(TriggerCastingApproved, ConditionGroup{
		Operator: "all",
		Conditions: []Condition{
			{Field: "briefingStatus", Operator: OpEquals, Value: "ready"},
			{Field: "madeUpField", Operator: OpEquals, Value: "x"},
		},
	})
	if len(unknown) != 1 || unknown[0] != "madeUpField" {
		t.Errorf("ValidateConditionFields = %v, want [madeUpField]", unknown)
	}
}
