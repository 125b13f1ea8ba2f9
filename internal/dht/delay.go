package dht

import "time"

// Delay waits for short, fixed intervals.
type Delay interface {
	Millis(n int)
	Micros(n int)
}

// BusyDelay sleeps for millisecond waits and spins on the monotonic clock
// for microsecond waits, where the scheduler's sleep granularity is too coarse.
type BusyDelay struct{}

// Millis sleeps for n milliseconds.
func (BusyDelay) Millis(n int) {
	time.Sleep(time.Duration(n) * time.Millisecond)
}

// Micros spins for n microseconds.
func (BusyDelay) Micros(n int) {
	deadline := time.Now().Add(time.Duration(n) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}

// NoDelay returns immediately. Poll ticks then advance one per line sample.
type NoDelay struct{}

func (NoDelay) Millis(int) {}
func (NoDelay) Micros(int) {}
