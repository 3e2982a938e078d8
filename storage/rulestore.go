package storage

import (
	"sort"
	"sync"

	"argus/core"
)

// RuleStore is a concurrent-safe in-memory registry of detection rules keyed
// by rule ID. Readers never block other readers; a writer's visibility to
// concurrent readers is eventually consistent, which is acceptable because
// detection is a continuously reevaluated process, not a transactional one.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]core.DetectionRule
}

// NewRuleStore creates an empty rule store.
func NewRuleStore() *RuleStore {
	return &RuleStore{
		rules: make(map[string]core.DetectionRule),
	}
}

// Add inserts a new rule. It returns ErrDuplicateRule if a rule with the same
// ID already exists; callers must pick a new ID or use Update.
func (rs *RuleStore) Add(rule core.DetectionRule) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.rules[rule.ID]; exists {
		return ErrDuplicateRule
	}
	rs.rules[rule.ID] = rule
	return nil
}

// Update replaces the stored rule wholesale; fields are not merged. It
// returns ErrRuleNotFound if no rule with the given ID exists.
func (rs *RuleStore) Update(id string, rule core.DetectionRule) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.rules[id]; !exists {
		return ErrRuleNotFound
	}
	rule.ID = id
	rs.rules[id] = rule
	return nil
}

// Remove deletes the rule with the given ID, returning ErrRuleNotFound if it
// is absent.
func (rs *RuleStore) Remove(id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.rules[id]; !exists {
		return ErrRuleNotFound
	}
	delete(rs.rules, id)
	return nil
}

// Get returns the rule with the given ID. A miss is reported through the bool
// return, not an error.
func (rs *RuleStore) Get(id string) (core.DetectionRule, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rule, ok := rs.rules[id]
	return rule, ok
}

// List returns a snapshot of all rules sorted by ID. The ordering is stable
// but carries no semantic weight: rule scoring is commutative addition, so
// evaluation order across rules does not affect aggregate results.
func (rs *RuleStore) List() []core.DetectionRule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	rules := make([]core.DetectionRule, 0, len(rs.rules))
	for _, rule := range rs.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// Count returns the number of stored rules.
func (rs *RuleStore) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}
