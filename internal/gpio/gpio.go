// Package gpio provides a bidirectional single-wire GPIO line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation replays a scripted waveform for testing without hardware.
package gpio

// Line is an open-drain data line with an external pull-up.
type Line interface {
	// SetHigh releases the line so the pull-up holds it high.
	SetHigh() error

	// SetLow actively drives the line low.
	SetLow() error

	// IsHigh samples the current logic level of the line.
	IsHigh() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip    = "gpiochip0"
	DefaultPinData = 4
)
