// Package units provides shared constants, validation and conversion for
// speed units. Internally every speed is carried in m/s.
package units

import "fmt"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

const mpsToMPH = 2.2369362920544

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units leave the value in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * mpsToMPH
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// ToMPS converts a speed expressed in unit back to meters per second.
func ToMPS(speed float64, unit string) (float64, error) {
	switch unit {
	case MPS:
		return speed, nil
	case MPH:
		return speed / mpsToMPH, nil
	case KMPH, KPH:
		return speed / 3.6, nil
	default:
		return 0, fmt.Errorf("invalid unit %q: must be one of %s", unit, GetValidUnitsString())
	}
}
