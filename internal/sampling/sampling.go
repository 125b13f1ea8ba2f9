// Package sampling runs the two periodic producers: the single-wire humidity
// task and the bus pressure/temperature task that drives the fusion stage.
// Both loops run until their context is cancelled and never stop on a read error.
package sampling

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/weather-station/internal/bmp"
	"github.com/sweeney/weather-station/internal/critical"
	"github.com/sweeney/weather-station/internal/dht"
	"github.com/sweeney/weather-station/internal/fresh"
	"github.com/sweeney/weather-station/internal/fusion"
	"github.com/sweeney/weather-station/internal/metrics"
	"github.com/sweeney/weather-station/internal/status"
)

// Default cadences. The single-wire sensor must not be read more than once a second.
const (
	DefaultHumidityInterval = 1250 * time.Millisecond
	DefaultPressureInterval = 100 * time.Millisecond
	MinHumidityInterval     = time.Second
)

// HumiditySensor is a single-wire sensor read with a checksum policy.
type HumiditySensor interface {
	ReadMode(mode dht.Mode) (dht.Measurement, error)
}

// HumidityTask samples the single-wire sensor and sends each humidity value
// to Out. Range checking is left to the fusion stage.
type HumidityTask struct {
	Sensor   HumiditySensor
	Section  critical.Section
	Out      *fresh.Channel[float64]
	Interval time.Duration
	Mode     dht.Mode
	Metrics  *metrics.Metrics
	Tracker  *status.Tracker
	Now      func() time.Time
}

// Run samples every Interval until ctx is cancelled. Intervals shorter than
// MinHumidityInterval are raised to it.
func (t *HumidityTask) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval())
	defer ticker.Stop()
	return t.RunTicks(ctx, ticker.C)
}

func (t *HumidityTask) interval() time.Duration {
	switch {
	case t.Interval <= 0:
		return DefaultHumidityInterval
	case t.Interval < MinHumidityInterval:
		return MinHumidityInterval
	}
	return t.Interval
}

// RunTicks reads once per cycle, waits for the next tick, then delivers the
// result. A failed read is logged and the cycle skipped.
func (t *HumidityTask) RunTicks(ctx context.Context, tick <-chan time.Time) error {
	for {
		m, err := t.read()

		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		}

		t.deliver(m, err)
	}
}

func (t *HumidityTask) read() (dht.Measurement, error) {
	var m dht.Measurement
	err := critical.With(t.Section, func() error {
		var err error
		m, err = t.Sensor.ReadMode(t.Mode)
		return err
	})
	return m, err
}

func (t *HumidityTask) deliver(m dht.Measurement, err error) {
	t.Tracker.HumidityResult(m, err, t.now())
	if err != nil {
		t.Metrics.HumidityRead(dht.Kind(err))
		log.Printf("humidity: read error: %v", err)
		return
	}
	t.Metrics.HumidityRead("ok")
	if t.Out.Send(m.Humidity) {
		t.Metrics.Overwrite("humidity")
	}
}

func (t *HumidityTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// PressureTask samples the bus sensor and feeds every result, including
// failures, to the fusion stage.
type PressureTask struct {
	Sensor   bmp.Sensor
	Stage    *fusion.Stage
	Interval time.Duration
	Metrics  *metrics.Metrics
	Tracker  *status.Tracker
	Now      func() time.Time
}

// Run samples every Interval until ctx is cancelled.
func (t *PressureTask) Run(ctx context.Context) error {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultPressureInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return t.RunTicks(ctx, ticker.C)
}

// RunTicks samples once per tick.
func (t *PressureTask) RunTicks(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			t.Step()
		}
	}
}

// Step runs one sampling cycle and returns the published record, if any.
func (t *PressureTask) Step() (fusion.Record, bool) {
	r, err := t.Sensor.Sense()
	t.Metrics.PressureRead(err == nil)
	t.Tracker.PressureResult(err)
	if err != nil {
		log.Printf("pressure: read error: %v", err)
	}

	rec, ok := t.Stage.Process(r, err)
	if ok {
		t.Tracker.SetRecord(rec, t.now())
	}
	return rec, ok
}

func (t *PressureTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
