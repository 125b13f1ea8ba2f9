package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/weather-station/internal/dht"
	"github.com/sweeney/weather-station/internal/fusion"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{IntervalMs: 100, HumidityIntervalMs: 1250, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.IntervalMs != 100 {
		t.Errorf("Config.IntervalMs: got %d, want 100", snap.Config.IntervalMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.HasRecord {
		t.Error("expected HasRecord=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestSetRecord(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := fusion.Record{PressureKPa: 101.3, HumidityPct: 55.2, TemperatureC: 21.3}

	tr.SetRecord(rec, at)
	tr.SetRecord(rec, at)

	snap := tr.Snapshot()
	if !snap.HasRecord {
		t.Fatal("expected HasRecord=true")
	}
	if snap.Record != rec {
		t.Errorf("Record: got %+v, want %+v", snap.Record, rec)
	}
	if !snap.RecordTime.Equal(at) {
		t.Errorf("RecordTime: got %v, want %v", snap.RecordTime, at)
	}
	if snap.Counts.Records != 2 {
		t.Errorf("Counts.Records: got %d, want 2", snap.Counts.Records)
	}
}

func TestHumidityResult(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.HumidityResult(dht.Measurement{Humidity: 40, Temperature: 19.5}, nil, at)
	tr.HumidityResult(dht.Measurement{}, dht.ErrTimeout, at.Add(time.Second))

	snap := tr.Snapshot()
	if snap.Humidity.Humidity != 40 {
		t.Errorf("failed read should keep last measurement, got %+v", snap.Humidity)
	}
	if !snap.HumidityTime.Equal(at) {
		t.Errorf("HumidityTime: got %v, want %v", snap.HumidityTime, at)
	}
	if snap.HumidityError != dht.ErrTimeout.Error() {
		t.Errorf("HumidityError: got %q", snap.HumidityError)
	}
	if snap.Counts.HumidityOK != 1 || snap.Counts.HumidityFailed != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}

	tr.HumidityResult(dht.Measurement{Humidity: 41}, nil, at.Add(2*time.Second))
	if e := tr.Snapshot().HumidityError; e != "" {
		t.Errorf("error after success: got %q, want empty", e)
	}
}

func TestPressureResult(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.PressureResult(errors.New("bmxx80 sense: i2c nack"))
	tr.PressureResult(nil)
	tr.PressureResult(nil)

	snap := tr.Snapshot()
	if snap.Counts.PressureOK != 2 || snap.Counts.PressureFailed != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.PressureError != "" {
		t.Errorf("PressureError: got %q, want empty", snap.PressureError)
	}
}

func TestNilTrackerIgnoresUpdates(t *testing.T) {
	var tr *Tracker
	tr.SetRecord(fusion.Record{}, time.Now())
	tr.HumidityResult(dht.Measurement{}, nil, time.Now())
	tr.PressureResult(nil)
	tr.SetMQTTConnected(true)
	tr.SetNetwork(nil)
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetRecord(fusion.Record{PressureKPa: 100}, time.Now())

	snap1 := tr.Snapshot()

	tr.SetRecord(fusion.Record{PressureKPa: 101}, time.Now())

	if snap1.Record.PressureKPa != 100 {
		t.Error("snapshot should be a copy; Record was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Record:        fusion.Record{PressureKPa: 101.3, HumidityPct: 55.2, TemperatureC: 21.3},
		HasRecord:     true,
		RecordTime:    start.Add(14 * time.Minute),
		Humidity:      dht.Measurement{Humidity: 55.2, Temperature: 21},
		Counts:        Counts{HumidityOK: 5, HumidityFailed: 2, PressureOK: 9000},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{IntervalMs: 100, HumidityIntervalMs: 1250, Checksum: "lenient", Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.Record == nil || parsed.Status.Record.PressureKPa != 101.3 {
		t.Errorf("Record: got %+v", parsed.Status.Record)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.HumidityFailed != 2 {
		t.Errorf("Counts.HumidityFailed: got %d, want 2", parsed.Status.Counts.HumidityFailed)
	}
	if parsed.Status.Config.Checksum != "lenient" {
		t.Errorf("Config.Checksum: got %q", parsed.Status.Config.Checksum)
	}
	if parsed.Status.Event != "" {
		t.Errorf("Event: got %q, want empty for web format", parsed.Status.Event)
	}
}

func TestFormatJSONBeforeFirstRecord(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["record"]; exists {
		t.Error("record should be omitted before the first record")
	}
	if status["ready"] != false {
		t.Errorf("ready: got %v, want false", status["ready"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		HasRecord:     true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "WeatherStation"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.SSID != "WeatherStation" {
		t.Errorf("Network.SSID: got %q, want WeatherStation", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.SetRecord(fusion.Record{PressureKPa: float64(i)}, time.Now())
			tr.HumidityResult(dht.Measurement{Humidity: 50}, nil, time.Now())
			tr.PressureResult(nil)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
