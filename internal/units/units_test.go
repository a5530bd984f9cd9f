package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid BMJD_TDB", BMJDTDB, true},
		{"valid BJD_TDB", BJDTDB, true},
		{"valid MJD_UTC", MJDUTC, true},
		{"valid BMJD_UTC", BMJDUTC, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "bmjd_tdb", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	want := "BMJD_TDB, BJD_TDB, MJD_UTC, BMJD_UTC"
	if got := GetValidUnitsString(); got != want {
		t.Errorf("GetValidUnitsString() = %q, want %q", got, want)
	}
}

func TestLightTravelDays(t *testing.T) {
	tests := []struct {
		name     string
		meters   float64
		expected float64
	}{
		{"zero distance", 0, 0},
		{"one light-day", SpeedOfLight * SecondsPerDay, 1},
		{"1 AU is about 499 s", 1.495978707e11, 499.004784 / SecondsPerDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LightTravelDays(tt.meters)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("LightTravelDays(%g) = %g, want %g", tt.meters, result, tt.expected)
			}
		})
	}
}

func TestSolarRadiiToMeters(t *testing.T) {
	if got := SolarRadiiToMeters(2); got != 2*SolarRadius {
		t.Errorf("SolarRadiiToMeters(2) = %g, want %g", got, 2*SolarRadius)
	}
}
