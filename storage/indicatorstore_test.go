package storage

import (
	"fmt"
	"sync"
	"testing"

	"argus/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndicatorStore_UpsertGet(t *testing.T) {
	store := NewIndicatorStore()

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	store.Upsert(indicator)
	assert.Equal(t, 1, store.Count())

	stored, ok := store.Get(indicator.ID)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", stored.Value)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestIndicatorStore_UpsertOverwrites(t *testing.T) {
	store := NewIndicatorStore()

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	store.Upsert(indicator)

	indicator.Severity = core.SeverityCritical
	indicator.Geolocation = "NL"
	store.Upsert(indicator)

	assert.Equal(t, 1, store.Count())
	stored, ok := store.Get(indicator.ID)
	require.True(t, ok)
	assert.Equal(t, core.SeverityCritical, stored.Severity)
	assert.Equal(t, "NL", stored.Geolocation)
}

func TestIndicatorStore_StoresCopy(t *testing.T) {
	store := NewIndicatorStore()

	indicator := core.NewThreatIndicator(core.IndicatorTypeIP, "203.0.113.7")
	store.Upsert(indicator)

	// Mutating the caller's struct after Upsert must not leak into the store
	indicator.Value = "changed"

	stored, _ := store.Get(indicator.ID)
	assert.Equal(t, "203.0.113.7", stored.Value)
}

func TestIndicatorStore_Remove(t *testing.T) {
	store := NewIndicatorStore()

	indicator := core.NewThreatIndicator(core.IndicatorTypeDomain, "evil.example")
	store.Upsert(indicator)

	assert.True(t, store.Remove(indicator.ID))
	assert.Equal(t, 0, store.Count())
	assert.False(t, store.Remove(indicator.ID))
}

func TestIndicatorStore_ConcurrentAccess(t *testing.T) {
	store := NewIndicatorStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			indicator := core.NewThreatIndicator(core.IndicatorTypeIP, fmt.Sprintf("10.0.0.%d", n))
			store.Upsert(indicator)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.Count()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Count())
}
