package bluetooth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

// ErrShortPayload indicates a characteristic value shorter than its flags require
var ErrShortPayload = errors.New("characteristic payload too short")

// poundsToKilograms is the exact international avoirdupois pound
const poundsToKilograms = 0.45359237

// DecodeHeartRate parses a Heart Rate Measurement (0x2A37) value. Flag bit 0
// selects a little-endian uint16 at offset 1 instead of a uint8.
func DecodeHeartRate(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("heart rate: %w: %d bytes", ErrShortPayload, len(b))
	}
	if b[0]&0x01 != 0 {
		if len(b) < 3 {
			return 0, fmt.Errorf("heart rate: %w: %d bytes for 16-bit value", ErrShortPayload, len(b))
		}
		return int(binary.LittleEndian.Uint16(b[1:3])), nil
	}
	return int(b[1]), nil
}

// Weight is a decoded Weight Measurement in the unit the scale reported
type Weight struct {
	Value float64
	Unit  string // "kg" or "lb"
}

// Kilograms returns the weight converted to kilograms
func (w Weight) Kilograms() float64 {
	if w.Unit == "lb" {
		return w.Value * poundsToKilograms
	}
	return w.Value
}

// DecodeWeight parses a Weight Measurement (0x2A9D) value. Flag bit 0 selects
// imperial units with 0.01 lb resolution; otherwise SI with 0.005 kg.
func DecodeWeight(b []byte) (Weight, error) {
	if len(b) < 3 {
		return Weight{}, fmt.Errorf("weight: %w: %d bytes", ErrShortPayload, len(b))
	}
	raw := float64(binary.LittleEndian.Uint16(b[1:3]))
	if b[0]&0x01 != 0 {
		return Weight{Value: raw / 100, Unit: "lb"}, nil
	}
	return Weight{Value: raw / 200, Unit: "kg"}, nil
}

// Decode turns a characteristic value for class into a reading taken at ts.
// Weights are stored in kilograms; the reported unit is kept in metadata.
func Decode(class Class, payload []byte, ts time.Time) (health.Reading, error) {
	p, ok := profiles[class]
	if !ok {
		return health.Reading{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	switch class {
	case HeartRate:
		bpm, err := DecodeHeartRate(payload)
		if err != nil {
			return health.Reading{}, err
		}
		return health.New(p.Source, ts, health.HeartRate, float64(bpm)), nil

	case Scale:
		w, err := DecodeWeight(payload)
		if err != nil {
			return health.Reading{}, err
		}
		r := health.New(p.Source, ts, health.Weight, w.Kilograms())
		if w.Unit != "kg" {
			r = r.WithMetadata("reported", w.Value).WithMetadata("reportedUnit", w.Unit)
		}
		return r, nil
	}
	return health.Reading{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
}
