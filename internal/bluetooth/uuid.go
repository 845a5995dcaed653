package bluetooth

import (
	"fmt"

	"github.com/google/uuid"
)

// Assigned numbers used by the supported profiles
const (
	HeartRateService     uint16 = 0x180D
	HeartRateMeasurement uint16 = 0x2A37
	WeightScaleService   uint16 = 0x181D
	WeightMeasurement    uint16 = 0x2A9D
)

// baseUUID is the Bluetooth SIG base UUID that 16-bit numbers expand into
var baseUUID = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// SIGUUID expands a 16-bit assigned number into its 128-bit UUID
func SIGUUID(short uint16) uuid.UUID {
	u := baseUUID
	u[2] = byte(short >> 8)
	u[3] = byte(short)
	return u
}

// ShortUUID returns the 16-bit assigned number inside u, if u is SIG-based
func ShortUUID(u uuid.UUID) (uint16, error) {
	short := uint16(u[2])<<8 | uint16(u[3])
	if SIGUUID(short) != u {
		return 0, fmt.Errorf("%s is not a Bluetooth SIG UUID", u)
	}
	return short, nil
}
