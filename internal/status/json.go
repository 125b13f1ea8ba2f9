package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/weather-station/internal/fusion"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Ready         bool           `json:"ready"`
	Record        *fusion.Record `json:"record,omitempty"`
	RecordTime    string         `json:"record_time,omitempty"`
	Sensors       SensorsJSON    `json:"sensors"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"read_counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// SensorsJSON reports the last raw sensor state.
type SensorsJSON struct {
	DHTHumidity    float64 `json:"dht_humidity"`
	DHTTemperature float64 `json:"dht_temperature"`
	DHTTime        string  `json:"dht_time,omitempty"`
	DHTError       string  `json:"dht_error,omitempty"`
	BMPError       string  `json:"bmp_error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of read counts.
type CountsJSON struct {
	HumidityOK     int `json:"humidity_ok"`
	HumidityFailed int `json:"humidity_failed"`
	PressureOK     int `json:"pressure_ok"`
	PressureFailed int `json:"pressure_failed"`
	Records        int `json:"records"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs         int64  `json:"interval_ms"`
	HumidityIntervalMs int64  `json:"humidity_interval_ms"`
	HeartbeatMs        int64  `json:"heartbeat_ms"`
	Checksum           string `json:"checksum"`
	Broker             string `json:"broker"`
	HTTPAddr           string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready: snap.HasRecord,
		Sensors: SensorsJSON{
			DHTHumidity:    snap.Humidity.Humidity,
			DHTTemperature: snap.Humidity.Temperature,
			DHTTime:        formatTime(snap.HumidityTime),
			DHTError:       snap.HumidityError,
			BMPError:       snap.PressureError,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			HumidityOK:     snap.Counts.HumidityOK,
			HumidityFailed: snap.Counts.HumidityFailed,
			PressureOK:     snap.Counts.PressureOK,
			PressureFailed: snap.Counts.PressureFailed,
			Records:        snap.Counts.Records,
		},
		Config: ConfigJSON{
			IntervalMs:         snap.Config.IntervalMs,
			HumidityIntervalMs: snap.Config.HumidityIntervalMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			Checksum:           snap.Config.Checksum,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
		},
	}

	if snap.HasRecord {
		rec := snap.Record
		inner.Record = &rec
		inner.RecordTime = formatTime(snap.RecordTime)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
