package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/haptix/internal/runtime"
	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested durations without waiting.
type recordingSleep struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)
	return ctx.Err()
}

func TestExecutor_StimulusTiming(t *testing.T) {
	d := memory.NewDispatcher()
	exec := runtime.NewExecutor(d)

	start := time.Now()
	report := exec.Execute(context.Background(), []domain.Action{
		domain.StimulusAction{Mode: "vibe", Value: 50, Repeats: 2, IntervalSeconds: 0.25},
	})
	elapsed := time.Since(start)

	assert.Equal(t, []domain.ActionRecord{
		{Type: domain.ActionStimulus, Mode: "vibe", Value: 50, Repeats: 2, Interval: 0.25},
	}, report.Records)
	assert.Equal(t, 2, report.Dispatched)
	assert.Zero(t, report.Failed)

	pulses := d.Pulses()
	require.Len(t, pulses, 2)
	assert.GreaterOrEqual(t, pulses[1].At.Sub(pulses[0].At), 250*time.Millisecond)
	// The interval is also honored after the final pulse.
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
}

func TestExecutor_SequenceOrder(t *testing.T) {
	sleeper := &recordingSleep{}
	d := memory.NewDispatcher()
	exec := runtime.NewExecutor(d, runtime.WithSleep(sleeper.Sleep))

	report := exec.Execute(context.Background(), []domain.Action{
		domain.StimulusAction{Mode: "zap", Value: 10, Repeats: 1, IntervalSeconds: 0.5},
		domain.WaitAction{Seconds: 2},
		domain.StimulusAction{Mode: "beep", Value: 80, Repeats: 3},
	})

	require.Len(t, report.Records, 3)
	assert.Equal(t, domain.ActionWait, report.Records[1].Type)
	assert.Equal(t, 2.0, report.Records[1].Seconds)
	assert.Equal(t, 4, report.Dispatched)

	pulses := d.Pulses()
	require.Len(t, pulses, 4)
	assert.Equal(t, "zap", pulses[0].Mode)
	for _, p := range pulses[1:] {
		assert.Equal(t, "beep", p.Mode)
		assert.Equal(t, 80, p.Value)
	}

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 2 * time.Second, 0, 0, 0}, sleeper.durations)
}

func TestExecutor_FailedPulsesDoNotAbort(t *testing.T) {
	vendorDown := errors.New("vendor down")
	d := memory.NewDispatcher(memory.WithFailures(func(mode string, value int) error {
		if mode == "zap" {
			return vendorDown
		}
		return nil
	}))

	var events []*domain.DispatchEvent
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		},
	}

	exec := runtime.NewExecutor(d, runtime.WithExecutorHooks(hooks), runtime.WithSleep((&recordingSleep{}).Sleep))
	report := exec.Execute(context.Background(), []domain.Action{
		domain.StimulusAction{Mode: "zap", Value: 30, Repeats: 2},
		domain.StimulusAction{Mode: "vibe", Value: 60, Repeats: 1},
	})

	assert.Len(t, report.Records, 2)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Dispatched)
	assert.Len(t, d.Pulses(), 3)

	require.Len(t, events, 3)
	assert.ErrorIs(t, events[0].Err, domain.ErrDispatchFailed)
	assert.ErrorIs(t, events[1].Err, vendorDown)
	assert.Equal(t, 2, events[1].Pulse)
	assert.NoError(t, events[2].Err)
}

func TestExecutor_DispatcherPanicIsContained(t *testing.T) {
	panicky := ports.DispatcherFunc(func(ctx context.Context, mode string, value int) error {
		panic("driver exploded")
	})
	exec := runtime.NewExecutor(panicky)

	report := exec.Execute(context.Background(), []domain.Action{
		domain.StimulusAction{Mode: "zap", Value: 1, Repeats: 2},
	})
	assert.Equal(t, 2, report.Failed)
}

func TestExecutor_NilDispatcher(t *testing.T) {
	exec := runtime.NewExecutor(nil)
	report := exec.Execute(context.Background(), []domain.Action{
		domain.StimulusAction{Mode: "zap", Value: 1, Repeats: 1},
	})
	assert.Equal(t, 1, report.Failed)
}

func TestExecutor_SkipsInvalidActions(t *testing.T) {
	d := memory.NewDispatcher()
	exec := runtime.NewExecutor(d)

	report := exec.Execute(context.Background(), []domain.Action{
		domain.WaitAction{Seconds: -1},
		domain.StimulusAction{Mode: "vibe", Value: 5, Repeats: -3},
		domain.StimulusAction{Mode: "vibe", Value: 5, Repeats: 1},
	})

	assert.Equal(t, 2, report.Skipped)
	assert.Len(t, report.Records, 1)
	assert.Len(t, d.Pulses(), 1)
}

func TestExecutor_ContextCancellation(t *testing.T) {
	d := memory.NewDispatcher()
	exec := runtime.NewExecutor(d)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	report := exec.Execute(ctx, []domain.Action{
		domain.WaitAction{Seconds: 10},
		domain.StimulusAction{Mode: "zap", Value: 1, Repeats: 1},
	})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, report.Records, 1)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, d.Pulses())
}

func TestSleep(t *testing.T) {
	assert.NoError(t, runtime.Sleep(context.Background(), 0))
	assert.NoError(t, runtime.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, runtime.Sleep(ctx, time.Hour), context.Canceled)
}
