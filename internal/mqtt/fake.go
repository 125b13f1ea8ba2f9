package mqtt

import (
	"sync"
	"time"

	"github.com/sweeney/weather-station/internal/fusion"
)

// FakePublisher records published messages for test assertions.
// It is safe for use from a forwarding goroutine; read the fields after
// that goroutine has stopped, or use Records.
type FakePublisher struct {
	mu sync.Mutex

	// Published contains every record that was published.
	Published []fusion.Record

	// Payloads contains the JSON payloads of published records.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// OnPublish, if set, is called after each successful Publish.
	OnPublish func(rec fusion.Record)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the record and its payload.
func (f *FakePublisher) Publish(rec fusion.Record, at time.Time) error {
	f.mu.Lock()
	if f.PublishError != nil {
		err := f.PublishError
		f.mu.Unlock()
		return err
	}
	payload, err := FormatPayload(rec, at)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	f.Published = append(f.Published, rec)
	f.Payloads = append(f.Payloads, payload)
	hook := f.OnPublish
	f.mu.Unlock()

	if hook != nil {
		hook(rec)
	}
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Records returns a copy of the published records.
func (f *FakePublisher) Records() []fusion.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fusion.Record(nil), f.Published...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
