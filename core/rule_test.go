package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validRule() DetectionRule {
	return DetectionRule{
		ID:       "suspicious_critical_ip",
		Name:     "Suspicious Critical IP",
		Enabled:  true,
		Priority: 8,
		Conditions: []RuleCondition{
			{Field: "indicator_type", Operator: OperatorEquals, Value: StringValue("ip"), Weight: 0.4},
			{Field: "severity", Operator: OperatorEquals, Value: StringValue("Critical"), Weight: 0.6},
		},
		Actions: []RuleAction{
			{Type: ActionBlock, Target: "firewall"},
		},
	}
}

func TestDetectionRule_Validate(t *testing.T) {
	rule := validRule()
	assert.NoError(t, rule.Validate())
}

func TestDetectionRule_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DetectionRule)
	}{
		{"empty id", func(r *DetectionRule) { r.ID = "  " }},
		{"empty name", func(r *DetectionRule) { r.Name = "" }},
		{"zero priority", func(r *DetectionRule) { r.Priority = 0 }},
		{"negative priority", func(r *DetectionRule) { r.Priority = -3 }},
		{"empty condition field", func(r *DetectionRule) { r.Conditions[0].Field = "" }},
		{"unknown operator", func(r *DetectionRule) { r.Conditions[0].Operator = "startswith" }},
		{"negative weight", func(r *DetectionRule) { r.Conditions[0].Weight = -0.1 }},
		{"unknown action type", func(r *DetectionRule) { r.Actions[0].Type = "launch_missiles" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			assert.Error(t, rule.Validate())
		})
	}
}

func TestDetectionRule_Validate_Nil(t *testing.T) {
	var rule *DetectionRule
	assert.Error(t, rule.Validate())
}

func TestDetectionRule_Validate_NoConditions(t *testing.T) {
	// A rule without conditions is structurally valid; it just never matches.
	rule := validRule()
	rule.Conditions = nil
	assert.NoError(t, rule.Validate())
}

func TestConditionOperator_IsValid(t *testing.T) {
	for _, op := range AllConditionOperators {
		assert.True(t, op.IsValid(), "expected %s to be valid", op)
	}
	assert.False(t, ConditionOperator("matches").IsValid())
}

func TestActionType_IsValid(t *testing.T) {
	for _, at := range AllActionTypes {
		assert.True(t, at.IsValid(), "expected %s to be valid", at)
	}
	assert.False(t, ActionType("").IsValid())
}

func TestDetectionRule_JSONRoundTrip(t *testing.T) {
	rule := validRule()
	rule.Tags = []string{"network", "c2"}
	rule.MitreTactics = []string{"TA0011"}

	data, err := json.Marshal(rule)
	require.NoError(t, err)

	var decoded DetectionRule
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, rule.ID, decoded.ID)
	assert.Equal(t, rule.Priority, decoded.Priority)
	require.Len(t, decoded.Conditions, 2)
	assert.True(t, rule.Conditions[0].Value.Equal(decoded.Conditions[0].Value))
	assert.Equal(t, rule.Actions, decoded.Actions)
	assert.Equal(t, rule.Tags, decoded.Tags)
}

func TestRuleSet_UnmarshalYAML(t *testing.T) {
	input := `
rules:
  - id: high_confidence
    name: High Confidence Indicator
    enabled: true
    priority: 5
    conditions:
      - field: confidence
        operator: greater_than
        value: 0.8
        weight: 1.0
    actions:
      - type: alert
        target: soc
`
	var ruleSet RuleSet
	require.NoError(t, yaml.Unmarshal([]byte(input), &ruleSet))
	require.Len(t, ruleSet.Rules, 1)

	rule := ruleSet.Rules[0]
	assert.Equal(t, "high_confidence", rule.ID)
	assert.Equal(t, 5, rule.Priority)
	require.Len(t, rule.Conditions, 1)
	assert.Equal(t, OperatorGreater, rule.Conditions[0].Operator)
	threshold, ok := rule.Conditions[0].Value.AsNumber()
	require.True(t, ok)
	assert.Equal(t, 0.8, threshold)
	require.Len(t, rule.Actions, 1)
	assert.Equal(t, ActionAlert, rule.Actions[0].Type)
}
