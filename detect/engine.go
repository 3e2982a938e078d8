package detect

import (
	"sync/atomic"
	"time"

	"argus/core"
	"argus/metrics"
	"argus/storage"

	"go.uber.org/zap"
)

// MatchThreshold is the fraction of a rule's total condition weight that must
// be satisfied for the rule to match. Weighted-majority matching lets rule
// authors mark conditions as critical (high weight) or corroborating (low
// weight) without separate AND/OR rule trees.
const MatchThreshold = 0.5

// RiskPerPriority is the risk score contribution of one matched rule per
// priority point.
const RiskPerPriority = 0.1

// EngineStats is a snapshot of the engine's health counters.
type EngineStats struct {
	ProcessedEvents int64 `json:"processed_events"`
	ActiveAlerts    int64 `json:"active_alerts"`
	LoadedRules     int   `json:"loaded_rules"`
}

// Engine is the detection orchestrator: the single public entry point that
// accepts indicators, evaluates every enabled rule against them, and produces
// detection results.
//
// The rule store may be mutated concurrently with ProcessIndicator calls; an
// in-flight evaluation observes either the old or the new rule depending on
// timing. That race is accepted: detection is best-effort and continuously
// reevaluated, not transactional.
type Engine struct {
	rules      *storage.RuleStore
	indicators *storage.IndicatorStore
	conditions *ConditionEvaluator
	logger     *zap.SugaredLogger

	// Counters are owned here and exposed via Stats so tests can construct
	// isolated engines without cross-test interference.
	processedEvents atomic.Int64
	activeAlerts    atomic.Int64
}

// NewEngine creates a detection engine over the given stores.
func NewEngine(rules *storage.RuleStore, indicators *storage.IndicatorStore, conditions *ConditionEvaluator, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		rules:      rules,
		indicators: indicators,
		conditions: conditions,
		logger:     logger,
	}
}

// AddRule registers a new detection rule. Fails with storage.ErrDuplicateRule
// if the ID is already in use.
func (e *Engine) AddRule(rule core.DetectionRule) error {
	if err := e.rules.Add(rule); err != nil {
		return err
	}
	metrics.RulesLoaded.Set(float64(e.rules.Count()))
	e.logger.Infof("Rule %s added (enabled=%v, priority=%d, conditions=%d)",
		rule.ID, rule.Enabled, rule.Priority, len(rule.Conditions))
	return nil
}

// UpdateRule replaces an existing rule wholesale. Fails with
// storage.ErrRuleNotFound if the ID is absent.
func (e *Engine) UpdateRule(id string, rule core.DetectionRule) error {
	if err := e.rules.Update(id, rule); err != nil {
		return err
	}
	e.logger.Infof("Rule %s updated", id)
	return nil
}

// RemoveRule deletes a rule. Fails with storage.ErrRuleNotFound if absent.
func (e *Engine) RemoveRule(id string) error {
	if err := e.rules.Remove(id); err != nil {
		return err
	}
	metrics.RulesLoaded.Set(float64(e.rules.Count()))
	e.logger.Infof("Rule %s removed", id)
	return nil
}

// GetRule returns a rule by ID; a miss is reported through the bool return.
func (e *Engine) GetRule(id string) (core.DetectionRule, bool) {
	return e.rules.Get(id)
}

// ListRules returns a snapshot of all registered rules.
func (e *Engine) ListRules() []core.DetectionRule {
	return e.rules.List()
}

// GetIndicator returns a stored indicator by ID.
func (e *Engine) GetIndicator(id string) (core.ThreatIndicator, bool) {
	return e.indicators.Get(id)
}

// RemoveIndicator deletes a stored indicator and reports whether it was
// present.
func (e *Engine) RemoveIndicator(id string) bool {
	return e.indicators.Remove(id)
}

// EvaluateRule reports whether a single rule matches the data view using
// weighted-majority scoring: the rule matches iff the summed weight of its
// satisfied conditions reaches MatchThreshold of the total condition weight.
// A rule whose total weight is zero (no conditions, or all weights zero)
// asserts nothing and never matches.
func (e *Engine) EvaluateRule(rule core.DetectionRule, view map[string]interface{}) bool {
	var totalWeight, matchedWeight float64
	for _, cond := range rule.Conditions {
		totalWeight += cond.Weight
		if e.conditions.Evaluate(cond, view) {
			matchedWeight += cond.Weight
		}
	}
	if totalWeight == 0 {
		return false
	}
	return matchedWeight/totalWeight >= MatchThreshold
}

// ProcessIndicator evaluates one indicator against every enabled rule and
// returns the detection result. The indicator is upserted into the indicator
// store first, so reprocessing the same ID is idempotent apart from the
// result timestamp. This operation never fails: concurrent rule churn is
// tolerated by evaluating whichever snapshot List returns.
func (e *Engine) ProcessIndicator(indicator *core.ThreatIndicator) *core.DetectionResult {
	start := time.Now()

	e.indicators.Upsert(indicator)
	e.processedEvents.Add(1)
	metrics.IndicatorsProcessed.WithLabelValues(string(indicator.Type)).Inc()

	view := indicator.DataView()
	result := core.NewDetectionResult(indicator.ID)

	for _, rule := range e.rules.List() {
		if !rule.Enabled {
			continue
		}
		if !e.EvaluateRule(rule, view) {
			continue
		}
		result.MatchedRules = append(result.MatchedRules, rule.ID)
		result.RiskScore += float64(rule.Priority) * RiskPerPriority
		result.RecommendedActions = append(result.RecommendedActions, rule.Actions...)
	}

	if result.RiskScore > core.MaxRiskScore {
		result.RiskScore = core.MaxRiskScore
	}

	metrics.RuleEvaluationDuration.Observe(time.Since(start).Seconds())

	if result.Matched() {
		e.activeAlerts.Add(1)
		metrics.DetectionsGenerated.WithLabelValues(string(indicator.Severity)).Inc()
		e.logger.Infof("Indicator %s matched %d rules (risk=%.1f)",
			indicator.ID, len(result.MatchedRules), result.RiskScore)
	} else {
		e.logger.Debugf("Indicator %s matched no rules", indicator.ID)
	}

	return result
}

// Stats returns a snapshot of the engine's counters for health reporting.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		ProcessedEvents: e.processedEvents.Load(),
		ActiveAlerts:    e.activeAlerts.Load(),
		LoadedRules:     e.rules.Count(),
	}
}
