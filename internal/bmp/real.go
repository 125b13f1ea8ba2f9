package bmp

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// RealSensor reads a bmxx80 device over I²C.
type RealSensor struct {
	bus i2c.BusCloser
	dev *bmxx80.Dev
}

// NewRealSensor initializes the periph host, opens the named I²C bus
// ("" for the first available) and probes the device at addr.
func NewRealSensor(busName string, addr uint16) (*RealSensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init bmxx80 at %#x: %w", addr, err)
	}

	return &RealSensor{bus: bus, dev: dev}, nil
}

// Sense performs one forced measurement.
func (s *RealSensor) Sense() (Reading, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return Reading{}, fmt.Errorf("bmxx80 sense: %w", err)
	}
	return fromEnv(e), nil
}

// String returns the device name.
func (s *RealSensor) String() string {
	return s.dev.String()
}

// Close halts the device and closes the bus.
func (s *RealSensor) Close() error {
	var errs []error
	if s.dev != nil {
		if err := s.dev.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt bmxx80: %w", err))
		}
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
