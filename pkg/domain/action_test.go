package domain_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/aretw0/haptix/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestActionRecord_JSONShape(t *testing.T) {
	stim := domain.StimulusAction{Mode: "vibe", Value: 50, Repeats: 2, IntervalSeconds: 0.25}.Record()
	data, err := json.Marshal(stim)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"stimulus","mode":"vibe","value":50,"repeats":2,"interval":0.25}`, string(data))

	zero := domain.StimulusAction{Mode: "zap"}.Record()
	data, err = json.Marshal(zero)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"stimulus","mode":"zap","value":0,"repeats":0,"interval":0}`, string(data))

	wait := domain.WaitAction{Seconds: 1.5}.Record()
	data, err = json.Marshal(wait)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"type":"wait","seconds":1.5}`, string(data))
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, domain.StimulusAction{Mode: "beep"}.Validate())
	assert.NoError(t, domain.WaitAction{}.Validate())

	assert.ErrorIs(t, domain.StimulusAction{}.Validate(), domain.ErrInvalidAction)
	assert.ErrorIs(t, domain.StimulusAction{Mode: "zap", Repeats: -1}.Validate(), domain.ErrInvalidAction)
	assert.ErrorIs(t, domain.StimulusAction{Mode: "zap", IntervalSeconds: -0.1}.Validate(), domain.ErrInvalidAction)
	assert.ErrorIs(t, domain.StimulusAction{Mode: "zap", IntervalSeconds: math.NaN()}.Validate(), domain.ErrInvalidAction)
	assert.ErrorIs(t, domain.WaitAction{Seconds: -1}.Validate(), domain.ErrInvalidAction)
}

func TestAction_Durations(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, domain.StimulusAction{IntervalSeconds: 0.25}.Interval())
	assert.Equal(t, 1500*time.Millisecond, domain.WaitAction{Seconds: 1.5}.Duration())
}

func TestAction_HugeDurations(t *testing.T) {
	wait := domain.WaitAction{Seconds: 1e12}
	assert.ErrorIs(t, wait.Validate(), domain.ErrInvalidAction)
	assert.Equal(t, time.Duration(math.MaxInt64), wait.Duration())

	stim := domain.StimulusAction{Mode: "vibe", Repeats: 1, IntervalSeconds: 1e12}
	assert.ErrorIs(t, stim.Validate(), domain.ErrInvalidAction)
	assert.Equal(t, time.Duration(math.MaxInt64), stim.Interval())

	assert.ErrorIs(t, domain.WaitAction{Seconds: math.Inf(1)}.Validate(), domain.ErrInvalidAction)
	assert.NoError(t, domain.WaitAction{Seconds: domain.MaxSeconds}.Validate())
	assert.Positive(t, domain.WaitAction{Seconds: domain.MaxSeconds}.Duration())
}

func TestPhraseTrigger(t *testing.T) {
	trig := domain.NewPhraseTrigger("Stop Now")

	assert.Equal(t, domain.TriggerPhrase, trig.Kind())
	assert.Equal(t, "Stop Now", trig.Phrase())
	assert.True(t, trig.Matches("please stop now"))
	assert.True(t, trig.Matches("PLEASE STOP NOW!"))
	assert.False(t, trig.Matches("please stop"))
	assert.False(t, domain.NewPhraseTrigger("").Matches("anything"))
}

func TestDispatchError_Unwrap(t *testing.T) {
	cause := assert.AnError
	err := &domain.DispatchError{Mode: "zap", Value: 10, Pulse: 1, Err: cause}

	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "mode=zap")
}
