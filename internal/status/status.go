// Package status provides a thread-safe status tracker for the weather-station daemon.
// It is read by HTTP handlers and by MQTT heartbeat/lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/weather-station/internal/dht"
	"github.com/sweeney/weather-station/internal/fusion"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs         int64
	HumidityIntervalMs int64
	HeartbeatMs        int64
	Checksum           string
	Broker             string
	HTTPAddr           string
}

// Counts tracks read outcomes since startup.
type Counts struct {
	HumidityOK     int
	HumidityFailed int
	PressureOK     int
	PressureFailed int
	Records        int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Record     fusion.Record
	HasRecord  bool
	RecordTime time.Time

	Humidity      dht.Measurement
	HumidityTime  time.Time
	HumidityError string
	PressureError string

	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
// A nil *Tracker ignores updates.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetRecord stores the latest published record.
func (t *Tracker) SetRecord(rec fusion.Record, at time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.Record = rec
	t.snap.HasRecord = true
	t.snap.RecordTime = at
	t.snap.Counts.Records++
	t.mu.Unlock()
}

// HumidityResult records the outcome of a single-wire read.
// A failed read keeps the previous measurement.
func (t *Tracker) HumidityResult(m dht.Measurement, err error, at time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if err != nil {
		t.snap.HumidityError = err.Error()
		t.snap.Counts.HumidityFailed++
	} else {
		t.snap.Humidity = m
		t.snap.HumidityTime = at
		t.snap.HumidityError = ""
		t.snap.Counts.HumidityOK++
	}
	t.mu.Unlock()
}

// PressureResult records the outcome of a bus sensor read.
func (t *Tracker) PressureResult(err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if err != nil {
		t.snap.PressureError = err.Error()
		t.snap.Counts.PressureFailed++
	} else {
		t.snap.PressureError = ""
		t.snap.Counts.PressureOK++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
