package notify

import (
	"context"
	"sync"
	"time"
)

// Line is one output line able to drive a relay.
type Line interface {
	SetValue(value int) error
	Close() error
}

// Relay pulses a GPIO line for each fired bell.
// Pulses run in the background; Close waits for them so a short-lived tick
// process does not exit with the relay energised.
type Relay struct {
	line  Line
	pulse time.Duration
	wg    sync.WaitGroup
	mu    sync.Mutex
}

// NewRelay wraps an already configured output line.
func NewRelay(line Line, pulse time.Duration) *Relay {
	return &Relay{
		line:  line,
		pulse: pulse,
	}
}

// Notify energises the relay and schedules its release.
func (r *Relay) Notify(_ context.Context, _ Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.line.SetValue(1); err != nil {
		return err
	}

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		time.Sleep(r.pulse)

		r.mu.Lock()
		defer r.mu.Unlock()

		_ = r.line.SetValue(0)
	}()

	return nil
}

// Close waits for pending pulses, drives the line low and releases it.
func (r *Relay) Close() error {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	_ = r.line.SetValue(0)

	return r.line.Close()
}
