package core

import (
	"time"

	"github.com/google/uuid"
)

// IndicatorType represents the kind of observable artifact an indicator
// describes.
type IndicatorType string

const (
	IndicatorTypeIP       IndicatorType = "ip"
	IndicatorTypeDomain   IndicatorType = "domain"
	IndicatorTypeHash     IndicatorType = "hash" // MD5, SHA1, SHA256, SHA512
	IndicatorTypeURL      IndicatorType = "url"
	IndicatorTypeEmail    IndicatorType = "email"
	IndicatorTypeFile     IndicatorType = "file"
	IndicatorTypeUser     IndicatorType = "user"
	IndicatorTypeProcess  IndicatorType = "process"
	IndicatorTypeRegistry IndicatorType = "registry"
	IndicatorTypeNetwork  IndicatorType = "network"
)

// AllIndicatorTypes returns all valid indicator types for validation.
var AllIndicatorTypes = []IndicatorType{
	IndicatorTypeIP, IndicatorTypeDomain, IndicatorTypeHash, IndicatorTypeURL,
	IndicatorTypeEmail, IndicatorTypeFile, IndicatorTypeUser,
	IndicatorTypeProcess, IndicatorTypeRegistry, IndicatorTypeNetwork,
}

// IsValid checks if the indicator type is valid.
func (t IndicatorType) IsValid() bool {
	for _, valid := range AllIndicatorTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// Severity represents threat severity level.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// AllSeverities returns all valid severities.
var AllSeverities = []Severity{
	SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical,
}

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	for _, valid := range AllSeverities {
		if s == valid {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// ThreatIndicator represents a single observed artifact of interest.
// Indicators are immutable once stored; reprocessing the same ID replaces the
// stored record wholesale.
type ThreatIndicator struct {
	ID         string        `json:"id" bson:"_id" example:"indicator-123"`
	Type       IndicatorType `json:"indicator_type" bson:"indicator_type" example:"ip"`
	Value      string        `json:"value" bson:"value" example:"203.0.113.7"`
	Confidence float64       `json:"confidence" bson:"confidence" example:"0.9"`
	Severity   Severity      `json:"severity" bson:"severity" example:"High"`
	Source     string        `json:"source" bson:"source" example:"abuse.ch"`
	Timestamp  time.Time     `json:"timestamp" bson:"timestamp"`
	Tags       []string      `json:"tags,omitempty" bson:"tags,omitempty"`

	// Optional enrichment context
	Geolocation string `json:"geolocation,omitempty" bson:"geolocation,omitempty"`
	ASN         string `json:"asn,omitempty" bson:"asn,omitempty"`
	Category    string `json:"category,omitempty" bson:"category,omitempty"`
}

// NewThreatIndicator creates a new ThreatIndicator with a generated UUID and
// the current UTC timestamp.
func NewThreatIndicator(indicatorType IndicatorType, value string) *ThreatIndicator {
	return &ThreatIndicator{
		ID:        uuid.New().String(),
		Type:      indicatorType,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

// DataView returns the flattened field-name to value mapping rule conditions
// look fields up in. Context fields are present only when set, so the
// not_exists operator can distinguish enriched from bare indicators.
func (ti *ThreatIndicator) DataView() map[string]interface{} {
	view := map[string]interface{}{
		"id":             ti.ID,
		"indicator_type": string(ti.Type),
		"value":          ti.Value,
		"confidence":     ti.Confidence,
		"severity":       string(ti.Severity),
		"source":         ti.Source,
		"timestamp":      ti.Timestamp,
		"tags":           ti.Tags,
	}
	if ti.Geolocation != "" {
		view["geolocation"] = ti.Geolocation
	}
	if ti.ASN != "" {
		view["asn"] = ti.ASN
	}
	if ti.Category != "" {
		view["category"] = ti.Category
	}
	return view
}
