package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndicatorsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_indicators_processed_total",
			Help: "Total number of threat indicators processed",
		},
		[]string{"type"},
	)

	DetectionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_detections_generated_total",
			Help: "Total number of detection results with at least one matched rule",
		},
		[]string{"severity"},
	)

	RuleEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_rule_evaluation_duration_seconds",
			Help:    "Time taken to evaluate all rules against one indicator",
			Buckets: prometheus.DefBuckets,
		},
	)

	RulesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "argus_rules_loaded",
			Help: "Number of detection rules currently loaded in the rule store",
		},
	)

	RegexTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_regex_timeouts_total",
			Help: "Total number of regex evaluations aborted by timeout",
		},
		[]string{"pattern_hash"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"cache", "operation"},
	)
)
