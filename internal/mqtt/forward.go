package mqtt

import (
	"context"
	"log"
	"time"

	"github.com/sweeney/weather-station/internal/fresh"
	"github.com/sweeney/weather-station/internal/fusion"
)

// Forward publishes every record received from in until ctx is cancelled.
// Records that arrive while a publish is in flight are coalesced by the
// channel; a publish error is logged and the next record is tried.
func Forward(ctx context.Context, in *fresh.Channel[fusion.Record], pub Publisher, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	for {
		rec, err := in.Receive(ctx)
		if err != nil {
			return nil
		}
		if err := pub.Publish(rec, now()); err != nil {
			log.Printf("mqtt: publish record: %v", err)
		}
	}
}
