package storage

import (
	"sync"

	"argus/core"
)

// IndicatorStore is a concurrent-safe in-memory registry of received threat
// indicators keyed by ID. Unlike the rule store, Upsert overwrites on
// duplicate IDs: reprocessing the same indicator is a valid, expected
// operation (enrichment updates replace the stored record wholesale).
type IndicatorStore struct {
	mu         sync.RWMutex
	indicators map[string]core.ThreatIndicator
}

// NewIndicatorStore creates an empty indicator store.
func NewIndicatorStore() *IndicatorStore {
	return &IndicatorStore{
		indicators: make(map[string]core.ThreatIndicator),
	}
}

// Upsert stores the indicator, replacing any existing record with the same ID.
func (is *IndicatorStore) Upsert(indicator *core.ThreatIndicator) {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.indicators[indicator.ID] = *indicator
}

// Get returns the indicator with the given ID. A missing indicator is an
// expected, non-exceptional outcome and is reported through the bool return.
func (is *IndicatorStore) Get(id string) (core.ThreatIndicator, bool) {
	is.mu.RLock()
	defer is.mu.RUnlock()

	indicator, ok := is.indicators[id]
	return indicator, ok
}

// Remove deletes the indicator with the given ID and reports whether it was
// present.
func (is *IndicatorStore) Remove(id string) bool {
	is.mu.Lock()
	defer is.mu.Unlock()

	if _, ok := is.indicators[id]; !ok {
		return false
	}
	delete(is.indicators, id)
	return true
}

// Count returns the number of stored indicators.
func (is *IndicatorStore) Count() int {
	is.mu.RLock()
	defer is.mu.RUnlock()
	return len(is.indicators)
}
