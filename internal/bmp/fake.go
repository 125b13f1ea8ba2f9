package bmp

import "errors"

// Sample is one scripted result: a reading, or an error if Err is set.
type Sample struct {
	Reading Reading
	Err     error
}

// FakeSensor is a test double that returns scripted samples.
type FakeSensor struct {
	// Samples are consumed one per Sense call; the last one repeats.
	Samples []Sample

	// Calls counts Sense calls.
	Calls int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...Sample) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Sense returns the next scripted sample.
func (f *FakeSensor) Sense() (Reading, error) {
	f.Calls++
	if len(f.Samples) == 0 {
		return Reading{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Reading, s.Err
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}
