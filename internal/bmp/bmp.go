// Package bmp reads pressure and temperature from a BMP280/BME280 on I²C.
// The real implementation uses periph.io's bmxx80 driver.
// The fake implementation returns scripted readings for testing.
package bmp

import (
	"periph.io/x/conn/v3/physic"
)

// Reading is one pressure/temperature sample.
type Reading struct {
	PressurePa   float64 // Pa
	TemperatureC float64 // °C
}

// Sensor samples pressure and temperature.
type Sensor interface {
	// Sense performs one measurement.
	Sense() (Reading, error)

	// Close halts the device and releases the bus.
	Close() error
}

// Defaults for a Pi with the sensor on the primary address.
const (
	DefaultBus     = ""
	DefaultAddress = 0x76
)

func fromEnv(e physic.Env) Reading {
	return Reading{
		PressurePa:   float64(e.Pressure) / float64(physic.Pascal),
		TemperatureC: e.Temperature.Celsius(),
	}
}
