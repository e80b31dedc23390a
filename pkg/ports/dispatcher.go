package ports

import "context"

// StimulusDispatcher delivers a single stimulus pulse to the hardware.
// The engine treats a returned error as a dropped pulse: it is logged and
// execution carries on. Retries, auth and transport belong to the implementation.
type StimulusDispatcher interface {
	DispatchStimulus(ctx context.Context, mode string, value int) error
}

// DispatcherFunc adapts a function to StimulusDispatcher.
type DispatcherFunc func(ctx context.Context, mode string, value int) error

func (f DispatcherFunc) DispatchStimulus(ctx context.Context, mode string, value int) error {
	return f(ctx, mode, value)
}
