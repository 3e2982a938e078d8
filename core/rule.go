package core

import (
	"fmt"
	"strings"
	"time"
)

// ConditionOperator enumerates the comparison operators a rule condition can
// apply to an indicator field.
type ConditionOperator string

const (
	OperatorEquals    ConditionOperator = "equals"
	OperatorContains  ConditionOperator = "contains"
	OperatorRegex     ConditionOperator = "regex"
	OperatorGreater   ConditionOperator = "greater_than"
	OperatorLess      ConditionOperator = "less_than"
	OperatorIn        ConditionOperator = "in"
	OperatorNotIn     ConditionOperator = "not_in"
	OperatorExists    ConditionOperator = "exists"
	OperatorNotExists ConditionOperator = "not_exists"
)

// AllConditionOperators returns all valid operators for validation.
var AllConditionOperators = []ConditionOperator{
	OperatorEquals, OperatorContains, OperatorRegex, OperatorGreater,
	OperatorLess, OperatorIn, OperatorNotIn, OperatorExists, OperatorNotExists,
}

// IsValid checks if the operator is valid.
func (op ConditionOperator) IsValid() bool {
	for _, valid := range AllConditionOperators {
		if op == valid {
			return true
		}
	}
	return false
}

// ActionType enumerates the response directives a rule can attach.
type ActionType string

const (
	ActionAlert      ActionType = "alert"
	ActionBlock      ActionType = "block"
	ActionQuarantine ActionType = "quarantine"
	ActionNotify     ActionType = "notify"
	ActionEscalate   ActionType = "escalate"
	ActionEnrich     ActionType = "enrich"
	ActionIsolate    ActionType = "isolate"
	ActionRemediate  ActionType = "remediate"
	ActionLog        ActionType = "log"
	ActionCustom     ActionType = "custom"
)

// AllActionTypes returns all valid action types for validation.
var AllActionTypes = []ActionType{
	ActionAlert, ActionBlock, ActionQuarantine, ActionNotify, ActionEscalate,
	ActionEnrich, ActionIsolate, ActionRemediate, ActionLog, ActionCustom,
}

// IsValid checks if the action type is valid.
func (t ActionType) IsValid() bool {
	for _, valid := range AllActionTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// RuleCondition is one weighted clause of a detection rule. A condition with
// weight 0 can never influence the match decision.
type RuleCondition struct {
	Field    string            `json:"field" yaml:"field" validate:"required"`
	Operator ConditionOperator `json:"operator" yaml:"operator" validate:"required"`
	Value    Value             `json:"value" yaml:"value"`
	Weight   float64           `json:"weight" yaml:"weight" validate:"gte=0"`
}

// RuleAction is a response directive attached to a rule. Actions are
// immutable and copied verbatim into detection results when the owning rule
// matches.
type RuleAction struct {
	Type       ActionType             `json:"type" yaml:"type" validate:"required"`
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Target     string                 `json:"target,omitempty" yaml:"target,omitempty" example:"security_team"`
}

// DetectionRule represents a named, prioritized matching policy over threat
// indicators.
type DetectionRule struct {
	ID              string          `json:"id" yaml:"id" validate:"required" example:"suspicious_critical_ip"`
	Name            string          `json:"name" yaml:"name" validate:"required" example:"Suspicious Critical IP"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled         bool            `json:"enabled" yaml:"enabled" example:"true"`
	Priority        int             `json:"priority" yaml:"priority" validate:"gt=0" example:"8"`
	Conditions      []RuleCondition `json:"conditions,omitempty" yaml:"conditions,omitempty" validate:"dive"`
	Actions         []RuleAction    `json:"actions,omitempty" yaml:"actions,omitempty" validate:"dive"`
	Author          string          `json:"author,omitempty" yaml:"author,omitempty"`
	Tags            []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	MitreTactics    []string        `json:"mitre_tactics,omitempty" yaml:"mitre_tactics,omitempty"`
	MitreTechniques []string        `json:"mitre_techniques,omitempty" yaml:"mitre_techniques,omitempty"`
	References      []string        `json:"references,omitempty" yaml:"references,omitempty"`
	CreatedAt       time.Time       `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at" yaml:"updated_at,omitempty"`
}

// Validate checks the structural invariants of a rule: non-empty ID and name,
// positive priority, known operators and action types, non-negative weights.
func (r *DetectionRule) Validate() error {
	if r == nil {
		return fmt.Errorf("cannot validate nil rule")
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule %s: name cannot be empty", r.ID)
	}
	if r.Priority <= 0 {
		return fmt.Errorf("rule %s: priority must be a positive integer, got %d", r.ID, r.Priority)
	}
	for i, cond := range r.Conditions {
		if strings.TrimSpace(cond.Field) == "" {
			return fmt.Errorf("rule %s: condition %d has empty field", r.ID, i)
		}
		if !cond.Operator.IsValid() {
			return fmt.Errorf("rule %s: condition %d has unknown operator %q", r.ID, i, cond.Operator)
		}
		if cond.Weight < 0 {
			return fmt.Errorf("rule %s: condition %d has negative weight %v", r.ID, i, cond.Weight)
		}
	}
	for i, action := range r.Actions {
		if !action.Type.IsValid() {
			return fmt.Errorf("rule %s: action %d has unknown type %q", r.ID, i, action.Type)
		}
	}
	return nil
}

// RuleSet is a collection of detection rules, the on-disk rule file format.
type RuleSet struct {
	Rules []DetectionRule `json:"rules" yaml:"rules"`
}
