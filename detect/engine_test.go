package detect

import (
	"fmt"
	"testing"
	"time"

	"argus/core"
	"argus/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	evaluator := NewConditionEvaluator(time.Second, zap.NewNop().Sugar())
	return NewEngine(storage.NewRuleStore(), storage.NewIndicatorStore(), evaluator, zap.NewNop().Sugar())
}

func suspiciousCriticalIPRule() core.DetectionRule {
	return core.DetectionRule{
		ID:       "suspicious_critical_ip",
		Name:     "Suspicious Critical IP",
		Enabled:  true,
		Priority: 8,
		Conditions: []core.RuleCondition{
			{Field: "indicator_type", Operator: core.OperatorEquals, Value: core.StringValue("ip"), Weight: 0.4},
			{Field: "severity", Operator: core.OperatorEquals, Value: core.StringValue("Critical"), Weight: 0.6},
		},
		Actions: []core.RuleAction{
			{Type: core.ActionBlock, Target: "firewall"},
			{Type: core.ActionAlert, Target: "soc"},
		},
	}
}

func TestEngine_ProcessIndicator_Match(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.AddRule(suspiciousCriticalIPRule()))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	result := engine.ProcessIndicator(indicator)

	require.True(t, result.Matched())
	assert.Equal(t, []string{"suspicious_critical_ip"}, result.MatchedRules)
	assert.InDelta(t, 0.8, result.RiskScore, 1e-9)
	require.Len(t, result.RecommendedActions, 2)
	assert.Equal(t, core.ActionBlock, result.RecommendedActions[0].Type)
	assert.Equal(t, indicator.ID, result.IndicatorID)
}

func TestEngine_ProcessIndicator_BelowThreshold(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.AddRule(suspiciousCriticalIPRule()))

	// Only the type condition matches: 0.4 of 1.0 is below the majority
	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "198.51.100.4")
	indicator.Severity = core.SeverityLow

	result := engine.ProcessIndicator(indicator)

	assert.False(t, result.Matched())
	assert.Empty(t, result.MatchedRules)
	assert.Zero(t, result.RiskScore)
	assert.Empty(t, result.RecommendedActions)
}

func TestEngine_ProcessIndicator_ExactThresholdMatches(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()
	rule.Conditions = []core.RuleCondition{
		{Field: "indicator_type", Operator: core.OperatorEquals, Value: core.StringValue("ip"), Weight: 0.5},
		{Field: "severity", Operator: core.OperatorEquals, Value: core.StringValue("Critical"), Weight: 0.5},
	}
	require.NoError(t, engine.AddRule(rule))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityLow

	result := engine.ProcessIndicator(indicator)
	assert.True(t, result.Matched(), "exactly half the weight satisfies the threshold")
}

func TestEngine_ProcessIndicator_DisabledRuleSkipped(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()
	rule.Enabled = false
	require.NoError(t, engine.AddRule(rule))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	result := engine.ProcessIndicator(indicator)
	assert.False(t, result.Matched())
}

func TestEngine_EvaluateRule_NoConditionsNeverMatches(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()
	rule.Conditions = nil

	view := map[string]interface{}{"indicator_type": "ip"}
	assert.False(t, engine.EvaluateRule(rule, view))
}

func TestEngine_EvaluateRule_AllZeroWeightsNeverMatches(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()
	for i := range rule.Conditions {
		rule.Conditions[i].Weight = 0
	}

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	assert.False(t, engine.EvaluateRule(rule, indicator.DataView()))
}

func TestEngine_EvaluateRule_ZeroWeightConditionIrrelevant(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()
	// A zero-weight condition that cannot match must not drag the rule down
	rule.Conditions = append(rule.Conditions, core.RuleCondition{
		Field: "source", Operator: core.OperatorEquals, Value: core.StringValue("nonexistent"), Weight: 0,
	})

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	assert.True(t, engine.EvaluateRule(rule, indicator.DataView()))
}

func TestEngine_ProcessIndicator_RiskScoreCapped(t *testing.T) {
	engine := newTestEngine(t)
	for i := 0; i < 15; i++ {
		rule := suspiciousCriticalIPRule()
		rule.ID = fmt.Sprintf("rule_%02d", i)
		rule.Priority = 10
		require.NoError(t, engine.AddRule(rule))
	}

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	result := engine.ProcessIndicator(indicator)
	require.Len(t, result.MatchedRules, 15)
	assert.Equal(t, core.MaxRiskScore, result.RiskScore)
}

func TestEngine_ProcessIndicator_DuplicateActionsPreserved(t *testing.T) {
	engine := newTestEngine(t)

	first := suspiciousCriticalIPRule()
	first.ID = "rule_a"
	second := suspiciousCriticalIPRule()
	second.ID = "rule_b"
	require.NoError(t, engine.AddRule(first))
	require.NoError(t, engine.AddRule(second))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	result := engine.ProcessIndicator(indicator)
	// Both rules carry identical actions and both copies survive
	assert.Len(t, result.RecommendedActions, 4)
}

func TestEngine_ProcessIndicator_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.AddRule(suspiciousCriticalIPRule()))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical

	first := engine.ProcessIndicator(indicator)
	second := engine.ProcessIndicator(indicator)

	assert.Equal(t, first.MatchedRules, second.MatchedRules)
	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.RecommendedActions, second.RecommendedActions)
}

func TestEngine_ProcessIndicator_UpsertsIndicator(t *testing.T) {
	engine := newTestEngine(t)

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	engine.ProcessIndicator(indicator)

	stored, ok := engine.GetIndicator(indicator.ID)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", stored.Value)

	// Reprocessing with enrichment replaces the stored record
	indicator.Geolocation = "NL"
	engine.ProcessIndicator(indicator)

	stored, ok = engine.GetIndicator(indicator.ID)
	require.True(t, ok)
	assert.Equal(t, "NL", stored.Geolocation)

	assert.True(t, engine.RemoveIndicator(indicator.ID))
	assert.False(t, engine.RemoveIndicator(indicator.ID))
}

func TestEngine_RuleManagement(t *testing.T) {
	engine := newTestEngine(t)
	rule := suspiciousCriticalIPRule()

	require.NoError(t, engine.AddRule(rule))
	assert.ErrorIs(t, engine.AddRule(rule), storage.ErrDuplicateRule)

	fetched, ok := engine.GetRule(rule.ID)
	require.True(t, ok)
	assert.Equal(t, rule.Name, fetched.Name)

	updated := rule
	updated.Priority = 3
	require.NoError(t, engine.UpdateRule(rule.ID, updated))
	fetched, _ = engine.GetRule(rule.ID)
	assert.Equal(t, 3, fetched.Priority)

	assert.ErrorIs(t, engine.UpdateRule("missing", rule), storage.ErrRuleNotFound)

	require.NoError(t, engine.RemoveRule(rule.ID))
	assert.ErrorIs(t, engine.RemoveRule(rule.ID), storage.ErrRuleNotFound)
	assert.Empty(t, engine.ListRules())
}

func TestEngine_Stats(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.AddRule(suspiciousCriticalIPRule()))

	matching := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	matching.Severity = core.SeverityCritical
	clean := core.NewThreatIndicator(core.IndicatorTypeDomain, "ok.example")

	engine.ProcessIndicator(matching)
	engine.ProcessIndicator(clean)

	stats := engine.Stats()
	assert.Equal(t, int64(2), stats.ProcessedEvents)
	assert.Equal(t, int64(1), stats.ActiveAlerts)
	assert.Equal(t, 1, stats.LoadedRules)
}

func TestEngine_WeightedMajority(t *testing.T) {
	engine := newTestEngine(t)
	rule := core.DetectionRule{
		ID:       "R1",
		Name:     "Critical With High Confidence",
		Enabled:  true,
		Priority: 8,
		Conditions: []core.RuleCondition{
			{Field: "severity", Operator: core.OperatorEquals, Value: core.StringValue("Critical"), Weight: 7.0},
			{Field: "confidence", Operator: core.OperatorGreater, Value: core.NumberValue(0.8), Weight: 3.0},
		},
		Actions: []core.RuleAction{{Type: core.ActionAlert, Target: "security_team"}},
	}
	require.NoError(t, engine.AddRule(rule))

	// Both conditions hold: 10/10 of the weight
	i1 := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	i1.Severity = core.SeverityCritical
	i1.Confidence = 0.9

	result := engine.ProcessIndicator(i1)
	assert.Equal(t, []string{"R1"}, result.MatchedRules)
	assert.InDelta(t, 0.8, result.RiskScore, 1e-9)
	require.Len(t, result.RecommendedActions, 1)
	assert.Equal(t, "security_team", result.RecommendedActions[0].Target)

	// Only the confidence condition holds: 3/10 is below the majority
	i2 := core.NewThreatIndicator(core.IndicatorTypeIP, "198.51.100.4")
	i2.Severity = core.SeverityLow
	i2.Confidence = 0.9

	result = engine.ProcessIndicator(i2)
	assert.Empty(t, result.MatchedRules)
	assert.Zero(t, result.RiskScore)
}

func TestEngine_MultipleRules_RiskAccumulates(t *testing.T) {
	engine := newTestEngine(t)

	ipRule := suspiciousCriticalIPRule()
	confidenceRule := core.DetectionRule{
		ID:       "high_confidence",
		Name:     "High Confidence Indicator",
		Enabled:  true,
		Priority: 5,
		Conditions: []core.RuleCondition{
			{Field: "confidence", Operator: core.OperatorGreater, Value: core.NumberValue(0.8), Weight: 1.0},
		},
		Actions: []core.RuleAction{{Type: core.ActionNotify, Target: "security_team"}},
	}
	require.NoError(t, engine.AddRule(ipRule))
	require.NoError(t, engine.AddRule(confidenceRule))

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	indicator.Severity = core.SeverityCritical
	indicator.Confidence = 0.95

	result := engine.ProcessIndicator(indicator)
	require.Len(t, result.MatchedRules, 2)
	assert.InDelta(t, 1.3, result.RiskScore, 1e-9)
	assert.Len(t, result.RecommendedActions, 3)
}
