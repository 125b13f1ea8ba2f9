// Package metrics exposes sensor read outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	humidityReads    *prometheus.CounterVec
	pressureReads    *prometheus.CounterVec
	humidityRejected prometheus.Counter
	records          prometheus.Counter
	overwrites       *prometheus.CounterVec
	lastRecord       *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		humidityReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_humidity_reads_total",
			Help: "Single-wire sensor reads by result (ok, timeout, checksum, gpio).",
		}, []string{"result"}),
		pressureReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_pressure_reads_total",
			Help: "Bus sensor reads by result (ok, error).",
		}, []string{"result"}),
		humidityRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_humidity_rejected_total",
			Help: "Humidity values discarded as out of range.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_records_published_total",
			Help: "Normalized records published.",
		}),
		overwrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_channel_overwrites_total",
			Help: "Unread values replaced by a newer one, per channel.",
		}, []string{"channel"}),
		lastRecord: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_record_value",
			Help: "Fields of the most recent normalized record.",
		}, []string{"field"}),
	}

	m.registry.MustRegister(
		m.humidityReads,
		m.pressureReads,
		m.humidityRejected,
		m.records,
		m.overwrites,
		m.lastRecord,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HumidityRead counts a single-wire read with the given result.
func (m *Metrics) HumidityRead(result string) {
	if m == nil {
		return
	}
	m.humidityReads.WithLabelValues(result).Inc()
}

// PressureRead counts a bus sensor read.
func (m *Metrics) PressureRead(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.pressureReads.WithLabelValues(result).Inc()
}

// HumidityRejected counts an out-of-range humidity value.
func (m *Metrics) HumidityRejected() {
	if m == nil {
		return
	}
	m.humidityRejected.Inc()
}

// RecordPublished counts a record and exposes its fields.
func (m *Metrics) RecordPublished(pressureKPa, humidityPct, temperatureC float64) {
	if m == nil {
		return
	}
	m.records.Inc()
	m.lastRecord.WithLabelValues("pressure_kpa").Set(pressureKPa)
	m.lastRecord.WithLabelValues("humidity_pct").Set(humidityPct)
	m.lastRecord.WithLabelValues("temperature_c").Set(temperatureC)
}

// Overwrite counts a dropped unread value on the named channel.
func (m *Metrics) Overwrite(channel string) {
	if m == nil {
		return
	}
	m.overwrites.WithLabelValues(channel).Inc()
}
