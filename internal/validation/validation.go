// Package validation checks user-supplied identifiers, readings and date ranges
package validation

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

// Range settings
const (
	DefaultRange = 7 * 24 * time.Hour
	MaxRange     = 90 * 24 * time.Hour
)

var deviceIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// bounds are the plausible values accepted for manual entry, in canonical units
var bounds = map[health.Type][2]float64{
	health.HeartRate:     {20, 250},
	health.Steps:         {0, 200000},
	health.Sleep:         {0, 1440},
	health.Weight:        {1, 500},
	health.BloodGlucose:  {10, 1000},
	health.BloodPressure: {40, 300},
	health.Oxygen:        {50, 100},
	health.Temperature:   {30, 45},
	health.Activity:      {0, 1440},
	health.Nutrition:     {0, 20000},
}

// ValidationError represents an invalid input field
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ValidateDeviceID checks the shape of a device or provider id
func ValidateDeviceID(id string) error {
	if !deviceIDRegex.MatchString(id) {
		return &ValidationError{
			Field:   "device id",
			Value:   id,
			Message: "must be lowercase letters, digits or underscores",
		}
	}
	return nil
}

// ManualReading is a reading typed in by the user
type ManualReading struct {
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Reading validates m and converts it to a reading from source "manual".
// An empty unit means the canonical unit; any other unit is rejected.
// A zero timestamp is replaced by now.
func (m ManualReading) Reading(now time.Time) (health.Reading, error) {
	typ, err := health.ParseType(m.Type)
	if err != nil {
		return health.Reading{}, &ValidationError{Field: "type", Value: m.Type, Message: "unknown reading type"}
	}

	want := health.UnitFor(typ)
	if m.Unit != "" && m.Unit != want {
		return health.Reading{}, &ValidationError{
			Field:   "unit",
			Value:   m.Unit,
			Message: fmt.Sprintf("%s must be recorded in %s", typ, want),
		}
	}

	if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return health.Reading{}, &ValidationError{Field: "value", Value: fmt.Sprint(m.Value), Message: "must be a finite number"}
	}
	if b := bounds[typ]; m.Value < b[0] || m.Value > b[1] {
		return health.Reading{}, &ValidationError{
			Field:   "value",
			Value:   fmt.Sprint(m.Value),
			Message: fmt.Sprintf("%s must be between %g and %g %s", typ, b[0], b[1], want),
		}
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = now
	}
	if ts.After(now.Add(5 * time.Minute)) {
		return health.Reading{}, &ValidationError{Field: "timestamp", Value: ts.Format(time.RFC3339), Message: "cannot be in the future"}
	}
	return health.New("manual", ts, typ, m.Value), nil
}

// ParseRange parses from/to as RFC 3339 timestamps or YYYY-MM-DD dates.
// Empty to means now; empty from means DefaultRange before to. A date-only
// to covers that whole day.
func ParseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, dateOnly, err := parseTime("to", to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
		if dateOnly {
			end = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	start := end.Add(-DefaultRange)
	if from != "" {
		t, _, err := parseTime("from", from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, &ValidationError{Field: "range", Value: from + ".." + to, Message: "from must not be after to"}
	}
	if end.Sub(start) > MaxRange {
		return time.Time{}, time.Time{}, &ValidationError{
			Field:   "range",
			Value:   from + ".." + to,
			Message: fmt.Sprintf("must not span more than %d days", int(MaxRange.Hours()/24)),
		}
	}
	return start, end, nil
}

func parseTime(field, s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, &ValidationError{Field: field, Value: s, Message: "must be RFC 3339 or YYYY-MM-DD"}
}
