package dht

import (
	"errors"
	"fmt"
)

// Errors returned by the driver.
var (
	// ErrTimeout means an expected edge did not arrive within the poll budget.
	ErrTimeout = errors.New("dht: timeout")

	// ErrChecksumMismatch means the frame checksum did not match its payload.
	ErrChecksumMismatch = errors.New("dht: checksum mismatch")

	// ErrGpio is matched by errors.Is for any *GpioError.
	ErrGpio = errors.New("dht: gpio fault")
)

// GpioError wraps a failure reported by the underlying line.
type GpioError struct {
	Op  string // "set_high", "set_low" or "is_high"
	Err error
}

func (e *GpioError) Error() string {
	return fmt.Sprintf("dht: gpio %s: %v", e.Op, e.Err)
}

func (e *GpioError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrGpio) match.
func (e *GpioError) Is(target error) bool { return target == ErrGpio }

// Kind classifies err for logs and metrics: "timeout", "checksum", "gpio" or "other".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, ErrGpio):
		return "gpio"
	default:
		return "other"
	}
}
