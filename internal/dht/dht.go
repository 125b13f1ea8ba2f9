// Package dht decodes the single-wire timing protocol used by DHT11-class
// humidity/temperature sensors.
//
// A read is a start signal from the host followed by 40 bits from the sensor.
// Each bit is a low phase followed by a high phase; a high phase longer than
// the low phase is a 1. Phases are measured in poll ticks, one sample of the
// line per tick, so the caller must run a read where it cannot be preempted
// (see package critical).
//
//	d := dht.New(line)
//	m, err := d.ReadChecked() // strict: checksum must match
//	m, err := d.Read()        // lenient: checksum ignored
package dht

import (
	"fmt"

	"github.com/sweeney/weather-station/internal/gpio"
)

// DefaultTimeout is the poll budget for each wait-for-level.
const DefaultTimeout uint32 = 1000

// Handshake timings.
const (
	releaseMs    = 1
	startLowMs   = 25
	responseWait = 40 // µs
)

// FrameBits is the number of bits in a frame.
const FrameBits = 40

// Mode selects how a checksum mismatch is handled.
type Mode int

const (
	// Lenient returns the decoded measurement even if the checksum is wrong.
	Lenient Mode = iota
	// Strict rejects frames with a bad checksum.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseMode parses "strict" or "lenient".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Lenient, fmt.Errorf("dht: unknown checksum mode %q", s)
}

// Measurement is one decoded reading.
type Measurement struct {
	Temperature float64 // °C, tenths resolution
	Humidity    float64 // %RH, tenths resolution
}

// Frame is the raw 5-byte payload: humidity int, humidity frac,
// temperature int (bit 7 is the sign), temperature frac, checksum.
type Frame [5]byte

// Device is a DHT sensor on a single GPIO line.
type Device struct {
	line    gpio.Line
	delay   Delay
	timeout uint32
}

// Option configures a Device.
type Option func(*Device)

// WithDelay replaces the default BusyDelay.
func WithDelay(d Delay) Option {
	return func(dev *Device) { dev.delay = d }
}

// WithTimeout sets the poll budget for each wait-for-level.
func WithTimeout(polls uint32) Option {
	return func(dev *Device) {
		if polls > 0 {
			dev.timeout = polls
		}
	}
}

// New creates a Device on line. It does not touch the line.
func New(line gpio.Line, opts ...Option) *Device {
	d := &Device{
		line:    line,
		delay:   BusyDelay{},
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Line returns the underlying GPIO line.
func (d *Device) Line() gpio.Line {
	return d.line
}

// Read performs a reading and ignores the checksum.
func (d *Device) Read() (Measurement, error) {
	return d.ReadMode(Lenient)
}

// ReadChecked performs a reading and returns ErrChecksumMismatch if the
// frame checksum is wrong.
func (d *Device) ReadChecked() (Measurement, error) {
	return d.ReadMode(Strict)
}

// ReadMode performs a reading with the given checksum policy.
func (d *Device) ReadMode(mode Mode) (Measurement, error) {
	frame, err := d.ReadFrame()
	if err != nil {
		return Measurement{}, err
	}
	return Decode(frame, mode)
}

// ReadFrame runs the handshake and returns the raw frame without validating it.
func (d *Device) ReadFrame() (Frame, error) {
	var frame Frame

	if err := d.handshake(); err != nil {
		return frame, err
	}

	for i := 0; i < FrameBits; i++ {
		frame[i/8] <<= 1
		bit, err := d.readBit()
		if err != nil {
			return frame, err
		}
		if bit {
			frame[i/8] |= 1
		}
	}

	// Line must return to idle, otherwise the sensor stopped mid-frame.
	if _, err := d.waitFor(true); err != nil {
		return frame, err
	}
	return frame, nil
}

// Checksum returns the low byte of the sum of the four payload bytes.
func Checksum(f Frame) byte {
	return f[0] + f[1] + f[2] + f[3]
}

// Decode converts a frame into a Measurement. In Strict mode a checksum
// mismatch is an error.
func Decode(f Frame, mode Mode) (Measurement, error) {
	if mode == Strict && Checksum(f) != f[4] {
		return Measurement{}, ErrChecksumMismatch
	}

	temp := int(f[2]&0x7f)*10 + int(f[3])
	if f[2]&0x80 != 0 {
		temp = -temp
	}

	return Measurement{
		Temperature: float64(temp) / 10,
		Humidity:    float64(int(f[0])*10+int(f[1])) / 10,
	}, nil
}

func (d *Device) handshake() error {
	// Let the pull-up raise the line before the start signal.
	if err := d.setHigh(); err != nil {
		return err
	}
	d.delay.Millis(releaseMs)

	if err := d.setLow(); err != nil {
		return err
	}
	d.delay.Millis(startLowMs)

	if err := d.setHigh(); err != nil {
		return err
	}
	d.delay.Micros(responseWait)

	// Sensor answers with ~80 µs low then ~80 µs high.
	_, err := d.readBit()
	return err
}

func (d *Device) readBit() (bool, error) {
	low, err := d.waitFor(true)
	if err != nil {
		return false, err
	}
	high, err := d.waitFor(false)
	if err != nil {
		return false, err
	}
	return high > low, nil
}

// waitFor polls until the line reaches level and returns the number of
// ticks spent at the other level.
func (d *Device) waitFor(level bool) (uint32, error) {
	var count uint32
	for {
		high, err := d.line.IsHigh()
		if err != nil {
			return 0, &GpioError{Op: "is_high", Err: err}
		}
		if high == level {
			return count, nil
		}
		count++
		if count > d.timeout {
			return 0, ErrTimeout
		}
		d.delay.Micros(1)
	}
}

func (d *Device) setHigh() error {
	if err := d.line.SetHigh(); err != nil {
		return &GpioError{Op: "set_high", Err: err}
	}
	return nil
}

func (d *Device) setLow() error {
	if err := d.line.SetLow(); err != nil {
		return &GpioError{Op: "set_low", Err: err}
	}
	return nil
}
