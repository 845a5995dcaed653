// Package health defines normalized health readings and the capped reading store
package health

import (
	"fmt"
	"time"
)

// Type is the kind of a health measurement
type Type string

// Reading types
const (
	HeartRate     Type = "heart_rate"
	Steps         Type = "steps"
	Sleep         Type = "sleep"
	Weight        Type = "weight"
	BloodGlucose  Type = "blood_glucose"
	BloodPressure Type = "blood_pressure"
	Oxygen        Type = "oxygen"
	Temperature   Type = "temperature"
	Activity      Type = "activity"
	Nutrition     Type = "nutrition"
)

var units = map[Type]string{
	HeartRate:     "bpm",
	Steps:         "steps",
	Sleep:         "minutes",
	Weight:        "kg",
	BloodGlucose:  "mg/dL",
	BloodPressure: "mmHg",
	Oxygen:        "%",
	Temperature:   "°C",
	Activity:      "minutes",
	Nutrition:     "kcal",
}

// Types lists every reading type
func Types() []Type {
	return []Type{HeartRate, Steps, Sleep, Weight, BloodGlucose, BloodPressure, Oxygen, Temperature, Activity, Nutrition}
}

// UnitFor returns the canonical unit of t
func UnitFor(t Type) string {
	return units[t]
}

// ParseType validates s as a reading type
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := units[t]; !ok {
		return "", fmt.Errorf("unknown reading type %q", s)
	}
	return t, nil
}

// Reading is one normalized measurement
type Reading struct {
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Type      Type           `json:"type"`
	Value     float64        `json:"value"`
	Unit      string         `json:"unit"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New builds a reading in the canonical unit of t
func New(source string, ts time.Time, t Type, value float64) Reading {
	return Reading{
		Source:    source,
		Timestamp: ts.UTC(),
		Type:      t,
		Value:     value,
		Unit:      UnitFor(t),
	}
}

// WithMetadata returns r with key set in its metadata
func (r Reading) WithMetadata(key string, value any) Reading {
	md := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[key] = value
	r.Metadata = md
	return r
}

type readingKey struct {
	source string
	ts     int64
	typ    Type
}

func (r Reading) key() readingKey {
	return readingKey{source: r.Source, ts: r.Timestamp.UnixNano(), typ: r.Type}
}
