package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pulse is a stimulus recorded by Dispatcher.
type Pulse struct {
	Mode  string
	Value int
	At    time.Time
}

// Dispatcher implements ports.StimulusDispatcher without hardware.
// It records every pulse and optionally logs it, which makes it both a
// dry-run backend and a test double. Safe for concurrent use.
type Dispatcher struct {
	mu     sync.Mutex
	pulses []Pulse
	fail   func(mode string, value int) error
	logger *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFailures makes the dispatcher return fn's error for matching pulses.
// Failed pulses are still recorded.
func WithFailures(fn func(mode string, value int) error) DispatcherOption {
	return func(d *Dispatcher) {
		d.fail = fn
	}
}

// WithDispatchLogger logs each pulse at info level.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a recording dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchStimulus records the pulse.
func (d *Dispatcher) DispatchStimulus(ctx context.Context, mode string, value int) error {
	d.mu.Lock()
	d.pulses = append(d.pulses, Pulse{Mode: mode, Value: value, At: time.Now()})
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.Info("Stimulus (dry run)", "mode", mode, "value", value)
	}
	if d.fail != nil {
		return d.fail(mode, value)
	}
	return nil
}

// Pulses returns a copy of the recorded pulses in dispatch order.
func (d *Dispatcher) Pulses() []Pulse {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Pulse, len(d.pulses))
	copy(out, d.pulses)
	return out
}

// Reset clears the recorded pulses.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pulses = nil
}
