// Package fusion merges the latest humidity value with each pressure/temperature
// sample into one validated, unit-converted, rounded record.
// This package has NO hardware dependencies; inputs arrive as values.
package fusion

import "math"

// Record is the unit of external delivery. Every field is rounded to one decimal.
type Record struct {
	PressureKPa  float64 `json:"pressure"`
	HumidityPct  float64 `json:"humidity"`
	TemperatureC float64 `json:"temperature"`
}

// Valid humidity range in percent, inclusive.
const (
	MinHumidity = 0.0
	MaxHumidity = 100.0
)

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// ToKPa converts pascals to kilopascals.
func ToKPa(pa float64) float64 {
	return pa / 1000
}

// ValidHumidity reports whether h is a plausible relative humidity.
func ValidHumidity(h float64) bool {
	return h >= MinHumidity && h <= MaxHumidity
}
