package fusion

import (
	"github.com/sweeney/weather-station/internal/bmp"
	"github.com/sweeney/weather-station/internal/fresh"
	"github.com/sweeney/weather-station/internal/metrics"
)

// Stage is the normalization stage. It is driven by one goroutine (the
// pressure task) and is not safe for concurrent Process calls.
type Stage struct {
	humidity *fresh.Channel[float64]
	outs     []Output
	metrics  *metrics.Metrics

	current float64
}

// Output is a named destination channel for records.
type Output struct {
	Name string
	Ch   *fresh.Channel[Record]
}

// NewStage creates a Stage that reads humidity from humidity and sends each
// record to every output. m may be nil.
func NewStage(humidity *fresh.Channel[float64], m *metrics.Metrics, outs ...Output) *Stage {
	return &Stage{
		humidity: humidity,
		outs:     outs,
		metrics:  m,
	}
}

// Humidity returns the currently adopted humidity.
func (s *Stage) Humidity() float64 {
	return s.current
}

// Process handles one pressure/temperature sample. The latest humidity is
// adopted whether or not the sample succeeded. A failed sample publishes
// nothing. It returns the record and true when one was published.
func (s *Stage) Process(r bmp.Reading, err error) (Record, bool) {
	if h, ok := s.humidity.TryReceive(); ok {
		if ValidHumidity(h) {
			s.current = Round1(h)
		} else {
			s.metrics.HumidityRejected()
		}
	}

	if err != nil {
		return Record{}, false
	}

	rec := Record{
		PressureKPa:  Round1(ToKPa(r.PressurePa)),
		HumidityPct:  s.current,
		TemperatureC: Round1(r.TemperatureC),
	}

	for _, o := range s.outs {
		if o.Ch.Send(rec) {
			s.metrics.Overwrite(o.Name)
		}
	}
	s.metrics.RecordPublished(rec.PressureKPa, rec.HumidityPct, rec.TemperatureC)
	return rec, true
}
