package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_RecordsPulses(t *testing.T) {
	boom := errors.New("vendor down")
	d := memory.NewDispatcher(memory.WithFailures(func(mode string, value int) error {
		if mode == "zap" {
			return boom
		}
		return nil
	}))
	ctx := context.Background()

	require.NoError(t, d.DispatchStimulus(ctx, "vibe", 50))
	assert.ErrorIs(t, d.DispatchStimulus(ctx, "zap", 10), boom)

	pulses := d.Pulses()
	require.Len(t, pulses, 2)
	assert.Equal(t, "vibe", pulses[0].Mode)
	assert.Equal(t, 50, pulses[0].Value)
	assert.Equal(t, "zap", pulses[1].Mode)
	assert.False(t, pulses[1].At.Before(pulses[0].At))

	d.Reset()
	assert.Empty(t, d.Pulses())
}
