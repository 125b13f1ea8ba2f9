//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// consumer is the label shown by gpioinfo for lines held by this daemon.
const consumer = "weather-station"

// RealLine drives a single-wire sensor through the Linux GPIO character device.
// Releasing the line reconfigures it as an input with pull-up; driving it low
// reconfigures it as an output at 0. Reading the level always samples the pin.
type RealLine struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	output bool
}

// NewRealLine requests the given line offset on chip and leaves it released (high).
func NewRealLine(chipName string, pin int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", pin, err)
	}

	return &RealLine{chip: chip, line: line}, nil
}

// SetHigh releases the line to the pull-up.
func (r *RealLine) SetHigh() error {
	if !r.output {
		return nil
	}
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		return fmt.Errorf("release data pin: %w", err)
	}
	r.output = false
	return nil
}

// SetLow drives the line low.
func (r *RealLine) SetLow() error {
	if r.output {
		if err := r.line.SetValue(0); err != nil {
			return fmt.Errorf("drive data pin low: %w", err)
		}
		return nil
	}
	if err := r.line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
		return fmt.Errorf("drive data pin low: %w", err)
	}
	r.output = true
	return nil
}

// IsHigh returns the sampled level of the line.
func (r *RealLine) IsHigh() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read data pin: %w", err)
	}
	return v != 0, nil
}

// Close returns the line to input with pull-up (the idle bus state) and releases it.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure data pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
