// Package units provides shared physical constants and validation for the
// time systems a light curve may be expressed in.
package units

import "strings"

// Time system constants
const (
	BMJDTDB = "BMJD_TDB"
	BJDTDB  = "BJD_TDB"
	MJDUTC  = "MJD_UTC"
	BMJDUTC = "BMJD_UTC"
)

// ValidTimeUnits contains all valid time-unit values
var ValidTimeUnits = []string{BMJDTDB, BJDTDB, MJDUTC, BMJDUTC}

// Physical constants in SI units.
const (
	SpeedOfLight  = 299792458.0 // m/s
	SolarRadius   = 6.957e8     // m (IAU nominal)
	SecondsPerDay = 86400.0
)

// IsValid checks if the given time unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidTimeUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidTimeUnits, ", ")
}

// SolarRadiiToMeters converts a length expressed in solar radii to meters.
func SolarRadiiToMeters(rs float64) float64 {
	return rs * SolarRadius
}

// LightTravelDays returns the time in days light takes to cross the given
// distance in meters.
func LightTravelDays(meters float64) float64 {
	return meters / SpeedOfLight / SecondsPerDay
}
