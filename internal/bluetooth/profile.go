// Package bluetooth connects to Bluetooth LE health devices over GATT and
// decodes their SIG measurement characteristics
package bluetooth

import (
	"errors"

	"github.com/google/uuid"
)

// Class is a supported device class
type Class string

// Device classes
const (
	HeartRate Class = "heart_rate"
	Scale     Class = "scale"
)

// ErrUnknownClass indicates a device class without a profile
var ErrUnknownClass = errors.New("unknown device class")

// Profile describes how to reach the measurement characteristic of a class
type Profile struct {
	Class          Class
	DeviceID       string // catalogue id used for connection status
	Source         string // reading source
	Service        uuid.UUID
	Characteristic uuid.UUID
}

var profiles = map[Class]Profile{
	HeartRate: {
		Class:          HeartRate,
		DeviceID:       "web_bluetooth_hr",
		Source:         "bluetooth_hr",
		Service:        SIGUUID(HeartRateService),
		Characteristic: SIGUUID(HeartRateMeasurement),
	},
	Scale: {
		Class:          Scale,
		DeviceID:       "web_bluetooth_scale",
		Source:         "bluetooth_scale",
		Service:        SIGUUID(WeightScaleService),
		Characteristic: SIGUUID(WeightMeasurement),
	},
}

// ProfileFor returns the profile of class
func ProfileFor(class Class) (Profile, bool) {
	p, ok := profiles[class]
	return p, ok
}
