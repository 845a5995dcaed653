package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"google_fit", false},
		{"web_bluetooth_hr", false},
		{"oura", false},
		{"", true},
		{"Fitbit", true},
		{"fit-bit", true},
		{"../etc", true},
		{"x", true},
	}
	for _, tt := range tests {
		err := ValidateDeviceID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDeviceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestManualReading(t *testing.T) {
	tests := []struct {
		name    string
		in      ManualReading
		wantErr string
	}{
		{name: "valid heart rate", in: ManualReading{Type: "heart_rate", Value: 64}},
		{name: "canonical unit given", in: ManualReading{Type: "weight", Value: 72.5, Unit: "kg"}},
		{name: "unknown type", in: ManualReading{Type: "mood", Value: 5}, wantErr: "unknown reading type"},
		{name: "foreign unit", in: ManualReading{Type: "weight", Value: 160, Unit: "lb"}, wantErr: "must be recorded in kg"},
		{name: "out of range", in: ManualReading{Type: "oxygen", Value: 120}, wantErr: "between 50 and 100"},
		{name: "future", in: ManualReading{Type: "steps", Value: 10, Timestamp: now.Add(time.Hour)}, wantErr: "future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.in.Reading(now)
			if tt.wantErr != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Reading() error = %v, want *ValidationError", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Reading() error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reading() error = %v", err)
			}
			if r.Source != "manual" || r.Unit != health.UnitFor(r.Type) || !r.Timestamp.Equal(now) {
				t.Errorf("Reading() = %+v", r)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults",
			wantStart: now.Add(-DefaultRange),
			wantEnd:   now,
		},
		{
			name:      "dates",
			from:      "2024-03-01",
			to:        "2024-03-02",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		},
		{
			name:      "timestamps",
			from:      "2024-03-01T06:00:00Z",
			to:        "2024-03-01T18:00:00+01:00",
			wantStart: time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC),
		},
		{name: "inverted", from: "2024-03-05", to: "2024-03-01", wantErr: true},
		{name: "too long", from: "2023-01-01", to: "2024-03-01", wantErr: true},
		{name: "garbage", from: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseRange(tt.from, tt.to, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("ParseRange() = %v, %v; want %v, %v", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
