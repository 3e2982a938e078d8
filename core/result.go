package core

import (
	"time"
)

// MaxRiskScore is the hard ceiling on a detection result's aggregate risk
// score, regardless of how many high-priority rules matched.
const MaxRiskScore = 10.0

// DetectionResult is the output of evaluating one indicator against the rule
// set. It references rules and the indicator by ID only; there is no lifetime
// coupling to the stored records. Results are constructed once per evaluation
// and not mutated afterwards.
type DetectionResult struct {
	IndicatorID        string       `json:"indicator_id" bson:"indicator_id"`
	MatchedRules       []string     `json:"matched_rules" bson:"matched_rules"`
	RiskScore          float64      `json:"risk_score" bson:"risk_score"`
	RecommendedActions []RuleAction `json:"recommended_actions" bson:"recommended_actions"`
	Timestamp          time.Time    `json:"timestamp" bson:"timestamp"`
}

// NewDetectionResult creates an empty result for the given indicator with the
// current UTC timestamp.
func NewDetectionResult(indicatorID string) *DetectionResult {
	return &DetectionResult{
		IndicatorID:        indicatorID,
		MatchedRules:       []string{},
		RecommendedActions: []RuleAction{},
		Timestamp:          time.Now().UTC(),
	}
}

// Matched reports whether any rule matched the indicator.
func (dr *DetectionResult) Matched() bool {
	return len(dr.MatchedRules) > 0
}
