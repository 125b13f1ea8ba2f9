// Package mqtt publishes weather records and lifecycle events to a broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/weather-station/internal/fusion"
)

// TopicRecords is the MQTT topic for normalized records.
const TopicRecords = "weather/station/records"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "weather/station/system"

// Publisher publishes records and system events.
type Publisher interface {
	// Publish sends a record taken at the given time.
	// A failure is returned to the caller and must not stop sampling.
	Publish(rec fusion.Record, at time.Time) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown only, e.g. "SIGTERM"
	RawPayload []byte // pre-formatted status snapshot; returned as is by FormatSystemPayload
	Retained   bool
}

// Payload is the record message body.
type Payload struct {
	Weather WeatherPayload `json:"weather"`
}

// WeatherPayload is a record stamped with its sample time.
type WeatherPayload struct {
	Timestamp string `json:"timestamp"`
	fusion.Record
}

// FormatPayload creates the JSON payload for a record.
func FormatPayload(rec fusion.Record, at time.Time) ([]byte, error) {
	return json.Marshal(Payload{
		Weather: WeatherPayload{
			Timestamp: at.UTC().Format(time.RFC3339),
			Record:    rec,
		},
	})
}

// SystemPayload is the body of events that carry no status snapshot
// (the last will and RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
