package gpio

import "errors"

// Segment is a run of identical samples on a scripted line.
type Segment struct {
	High  bool // level seen by IsHigh
	Polls int  // number of IsHigh calls that observe this level
}

// Nominal single-wire timings in poll ticks (≈1 µs each).
const (
	ResponseLowPolls  = 80
	ResponseHighPolls = 80
	BitLowPolls       = 50
	ZeroHighPolls     = 27
	OneHighPolls      = 70
)

// FakeLine is a test double that replays a scripted waveform.
// Every SetLow (a host start signal) rewinds the script so each read sees
// the whole waveform again. Once the script is exhausted the line sits at
// its idle level.
type FakeLine struct {
	// Script is the sensor's response to a start signal.
	Script []Segment

	// IdleLow makes the line sit low after the script ends (a stuck bus).
	IdleLow bool

	// ReadError, if set, is returned by IsHigh.
	ReadError error

	// WriteError, if set, is returned by SetHigh and SetLow.
	WriteError error

	// Writes records each host write: true for SetHigh, false for SetLow.
	Writes []bool

	// Polls counts IsHigh calls since the last start signal.
	Polls int

	// Closed tracks if Close was called.
	Closed bool

	seg  int
	left int
}

// NewFakeLine creates a FakeLine with the given script.
func NewFakeLine(script []Segment) *FakeLine {
	f := &FakeLine{Script: script}
	f.rewind()
	return f
}

// SetHigh records a release of the line.
func (f *FakeLine) SetHigh() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, true)
	return nil
}

// SetLow records a start signal and rewinds the script.
func (f *FakeLine) SetLow() error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, false)
	f.rewind()
	return nil
}

// IsHigh returns the next scripted level.
func (f *FakeLine) IsHigh() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.Closed {
		return false, errors.New("gpio: line closed")
	}
	f.Polls++

	for f.seg < len(f.Script) && f.left == 0 {
		f.seg++
		if f.seg < len(f.Script) {
			f.left = f.Script[f.seg].Polls
		}
	}
	if f.seg >= len(f.Script) {
		return !f.IdleLow, nil
	}
	f.left--
	return f.Script[f.seg].High, nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

func (f *FakeLine) rewind() {
	f.seg = 0
	f.left = 0
	f.Polls = 0
	if len(f.Script) > 0 {
		f.left = f.Script[0].Polls
	}
}

// PulseTrain encodes data as a sensor response: the 80/80 response pair,
// then per bit a low phase followed by a short (0) or long (1) high phase,
// MSB first, then a final low phase before the line returns to idle.
func PulseTrain(data ...byte) []Segment {
	script := []Segment{
		{High: false, Polls: ResponseLowPolls},
		{High: true, Polls: ResponseHighPolls},
	}
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			high := ZeroHighPolls
			if b&(1<<uint(i)) != 0 {
				high = OneHighPolls
			}
			script = append(script,
				Segment{High: false, Polls: BitLowPolls},
				Segment{High: true, Polls: high},
			)
		}
	}
	return append(script, Segment{High: false, Polls: BitLowPolls})
}
