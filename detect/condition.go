package detect

import (
	"strings"
	"time"

	"argus/core"

	"go.uber.org/zap"
)

// ConditionEvaluator decides whether a single rule condition holds for an
// indicator's flattened data view.
//
// Evaluation is fail-closed: missing fields, type mismatches, and invalid
// regex patterns all resolve to false rather than an error, so a malformed
// indicator can never abort rule evaluation. The two existence operators are
// the deliberate exceptions: exists is unconditionally true, and not_exists
// is true exactly when the field is absent.
type ConditionEvaluator struct {
	regexTimeout time.Duration
	logger       *zap.SugaredLogger
}

// NewConditionEvaluator creates a condition evaluator. A non-positive
// regexTimeout falls back to DefaultRegexTimeout.
func NewConditionEvaluator(regexTimeout time.Duration, logger *zap.SugaredLogger) *ConditionEvaluator {
	if regexTimeout <= 0 {
		regexTimeout = DefaultRegexTimeout
	}
	return &ConditionEvaluator{
		regexTimeout: regexTimeout,
		logger:       logger,
	}
}

// Evaluate reports whether the condition is satisfied by the data view.
func (ce *ConditionEvaluator) Evaluate(cond core.RuleCondition, view map[string]interface{}) bool {
	fieldValue, present := view[cond.Field]

	switch cond.Operator {
	case core.OperatorExists:
		// Unconditionally true, even for missing fields. Pending product
		// clarification; not_exists carries the real absence test.
		return true
	case core.OperatorNotExists:
		return !present
	}

	if !present {
		return false
	}

	switch cond.Operator {
	case core.OperatorEquals:
		return cond.Value.Matches(fieldValue)

	case core.OperatorContains:
		return containsString(fieldValue, cond.Value)

	case core.OperatorRegex:
		return ce.matchRegex(fieldValue, cond.Value)

	case core.OperatorGreater:
		return compareNumbers(fieldValue, cond.Value, func(a, b float64) bool { return a > b })

	case core.OperatorLess:
		return compareNumbers(fieldValue, cond.Value, func(a, b float64) bool { return a < b })

	case core.OperatorIn:
		return inArray(fieldValue, cond.Value)

	case core.OperatorNotIn:
		// A non-array comparison value fails closed rather than inverting.
		if _, ok := cond.Value.AsArray(); !ok {
			return false
		}
		return !inArray(fieldValue, cond.Value)
	}

	return false
}

// containsString reports whether the field value contains the comparison
// value as a substring. Both sides must be strings.
func containsString(fieldValue interface{}, value core.Value) bool {
	str, ok := fieldValue.(string)
	if !ok {
		return false
	}
	substr, ok := value.AsString()
	if !ok {
		return false
	}
	return strings.Contains(str, substr)
}

// matchRegex matches the comparison value as a pattern anywhere in the field
// value. Invalid patterns and timeouts fail closed.
func (ce *ConditionEvaluator) matchRegex(fieldValue interface{}, value core.Value) bool {
	str, ok := fieldValue.(string)
	if !ok {
		return false
	}
	pattern, ok := value.AsString()
	if !ok {
		return false
	}
	match, err := MatchPattern(pattern, str, ce.regexTimeout)
	if err != nil {
		if ce.logger != nil {
			ce.logger.Debugf("Regex condition failed closed (pattern=%q): %v", pattern, err)
		}
		return false
	}
	return match
}

// compareNumbers applies cmp to the field and comparison values when both are
// numeric; any type mismatch is false.
func compareNumbers(fieldValue interface{}, value core.Value, cmp func(a, b float64) bool) bool {
	threshold, ok := value.AsNumber()
	if !ok {
		return false
	}
	f, ok := numericField(fieldValue)
	if !ok {
		return false
	}
	return cmp(f, threshold)
}

// numericField converts the numeric types that appear in data views to
// float64. Strings are not coerced; a non-numeric field fails the comparison.
func numericField(fieldValue interface{}) (float64, bool) {
	switch n := fieldValue.(type) {
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
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// inArray reports whether the comparison array contains the field value by
// structural equality. A non-array comparison value is false.
func inArray(fieldValue interface{}, value core.Value) bool {
	items, ok := value.AsArray()
	if !ok {
		return false
	}
	for _, item := range items {
		if item.Matches(fieldValue) {
			return true
		}
	}
	return false
}
