package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"argus/metrics"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegexTimeout bounds a single regex evaluation. regexp2 enforces the
// timeout through backtracking limits, so a pathological pattern cannot stall
// rule evaluation.
const DefaultRegexTimeout = 500 * time.Millisecond

// DefaultRegexCacheSize is the number of compiled patterns kept in the LRU
// cache. Rule sets reuse a small set of patterns, so recompiling per
// evaluation would be pure waste.
const DefaultRegexCacheSize = 1024

// MaxPatternLength caps accepted pattern length as a first-line ReDoS guard.
const MaxPatternLength = 1000

var ErrRegexTimeout = fmt.Errorf("regex evaluation timeout")

// patternCache caches compiled regexp2 patterns keyed by pattern and timeout.
var (
	patternCache     *lru.Cache[string, *regexp2.Regexp]
	patternCacheOnce sync.Once
)

func getPatternCache() *lru.Cache[string, *regexp2.Regexp] {
	patternCacheOnce.Do(func() {
		// lru.New only fails on a non-positive size
		patternCache, _ = lru.New[string, *regexp2.Regexp](DefaultRegexCacheSize)
	})
	return patternCache
}

// MatchPattern matches a pattern against input with timeout protection.
// Compilation failures and timeouts are returned as errors so callers can
// apply their own fail-closed policy.
func MatchPattern(pattern, input string, timeout time.Duration) (bool, error) {
	if pattern == "" {
		return false, fmt.Errorf("regex pattern cannot be empty")
	}
	if len(pattern) > MaxPatternLength {
		return false, fmt.Errorf("regex pattern too long: %d characters (max %d)", len(pattern), MaxPatternLength)
	}
	if timeout <= 0 {
		timeout = DefaultRegexTimeout
	}

	// Different timeouts need different cache entries
	cacheKey := fmt.Sprintf("%s:%d", pattern, timeout.Milliseconds())

	cache := getPatternCache()
	re, ok := cache.Get(cacheKey)
	if !ok {
		var err error
		re, err = regexp2.Compile(pattern, 0)
		if err != nil {
			return false, fmt.Errorf("failed to compile regex pattern: %w", err)
		}
		re.MatchTimeout = timeout
		cache.Add(cacheKey, re)
	}

	match, err := re.MatchString(input)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "timeout") {
			metrics.RegexTimeouts.WithLabelValues(hashPattern(pattern)).Inc()
			return false, ErrRegexTimeout
		}
		return false, fmt.Errorf("regex matching error: %w", err)
	}
	return match, nil
}

// ValidatePattern checks that a pattern compiles and respects the length
// limit, without evaluating it. Used by the rule loader to reject rules with
// broken regex conditions at load time.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("regex pattern cannot be empty")
	}
	if len(pattern) > MaxPatternLength {
		return fmt.Errorf("regex pattern too long: %d characters (max %d)", len(pattern), MaxPatternLength)
	}
	if _, err := regexp2.Compile(pattern, 0); err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	return nil
}

// ClearPatternCache clears the compiled pattern cache (useful for testing).
func ClearPatternCache() {
	getPatternCache().Purge()
}

// hashPattern creates a short hash of a pattern for metrics labeling.
func hashPattern(pattern string) string {
	hash := sha256.Sum256([]byte(pattern))
	return hex.EncodeToString(hash[:])[:8]
}
