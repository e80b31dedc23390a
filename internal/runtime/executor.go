package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/ports"
)

// SleepFunc parks the calling goroutine for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Report describes one Execute call.
type Report struct {
	Records    []domain.ActionRecord
	Dispatched int
	Failed     int
	Skipped    int
}

// Executor runs action sequences on behalf of firing nodes.
// It holds no per-session state and is shared by all sessions.
type Executor struct {
	dispatcher ports.StimulusDispatcher
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	sleep      SleepFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger used for dropped pulses.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithExecutorHooks registers observability hooks.
func WithExecutorHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// WithSleep replaces the context-aware timer used for waits and intervals.
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(x *Executor) {
		if fn != nil {
			x.sleep = fn
		}
	}
}

// NewExecutor creates an executor that sends pulses through dispatcher.
func NewExecutor(dispatcher ports.StimulusDispatcher, opts ...ExecutorOption) *Executor {
	x := &Executor{
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Execute runs actions strictly in order.
//
// A stimulus sends Repeats pulses and pauses its interval after every pulse,
// the last one included. A failed pulse is logged and dropped; it never stops
// the sequence. If ctx is done, the remaining actions are skipped.
func (x *Executor) Execute(ctx context.Context, actions []domain.Action) Report {
	report := Report{Records: make([]domain.ActionRecord, 0, len(actions))}
	logger := logging.LogWith(ctx, x.logger)

	for i, action := range actions {
		if ctx.Err() != nil {
			report.Skipped += len(actions) - i
			logger.Warn("Action sequence interrupted", "remaining", len(actions)-i, "err", ctx.Err())
			break
		}
		if err := action.Validate(); err != nil {
			report.Skipped++
			logger.Error("Skipping invalid action", "index", i, "err", err)
			continue
		}

		report.Records = append(report.Records, action.Record())

		var err error
		switch a := action.(type) {
		case domain.StimulusAction:
			err = x.stimulate(ctx, logger, a, &report)
		case domain.WaitAction:
			err = x.sleep(ctx, a.Duration())
		default:
			logger.Error("Unsupported action type", "type", action.Type())
		}
		if err != nil {
			report.Skipped += len(actions) - i - 1
			logger.Warn("Action sequence interrupted", "remaining", len(actions)-i-1, "err", err)
			break
		}
	}

	return report
}

func (x *Executor) stimulate(ctx context.Context, logger *slog.Logger, a domain.StimulusAction, report *Report) error {
	interval := a.Interval()
	for pulse := 1; pulse <= a.Repeats; pulse++ {
		err := x.dispatch(ctx, a.Mode, a.Value)

		event := &domain.DispatchEvent{
			EventBase: domain.NewEventBase(domain.EventDispatch, logging.SessionID(ctx)),
			NodeID:    logging.NodeID(ctx),
			Mode:      a.Mode,
			Value:     a.Value,
			Pulse:     pulse,
		}
		if err != nil {
			report.Failed++
			dispatchErr := &domain.DispatchError{Mode: a.Mode, Value: a.Value, Pulse: pulse, Err: err}
			event.Err = dispatchErr
			logger.Warn("Stimulus pulse dropped",
				"mode", a.Mode,
				"value", a.Value,
				"pulse", pulse,
				"err", err,
			)
		} else {
			report.Dispatched++
		}
		x.hooks.Dispatched(ctx, event)

		if err := x.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

// dispatch shields the sequence from a misbehaving dispatcher.
func (x *Executor) dispatch(ctx context.Context, mode string, value int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panic: %v", r)
		}
	}()
	if x.dispatcher == nil {
		return fmt.Errorf("no stimulus dispatcher configured")
	}
	return x.dispatcher.DispatchStimulus(ctx, mode, value)
}

// Sleep waits for d on a timer. It releases the goroutine while waiting and
// returns early with ctx.Err() when ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
