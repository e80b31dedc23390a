package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ActionType tags the variant of an Action.
type ActionType string

const (
	// ActionStimulus sends pulses to the hardware.
	ActionStimulus ActionType = "stimulus"
	// ActionWait suspends the sequence without side effects.
	ActionWait ActionType = "wait"
	// ActionPreset only exists in definitions; it is expanded into stimulus and wait actions at build time.
	ActionPreset ActionType = "preset"
)

// Action is one step of node behavior.
// The set of implementations is closed: StimulusAction and WaitAction.
type Action interface {
	Type() ActionType
	Validate() error
	Record() ActionRecord
	isAction()
}

// StimulusAction sends Repeats pulses of Mode/Value, pausing IntervalSeconds after each one.
type StimulusAction struct {
	Mode            string
	Value           int
	Repeats         int
	IntervalSeconds float64
}

func (StimulusAction) isAction() {}

func (StimulusAction) Type() ActionType { return ActionStimulus }

// Interval returns the pause between pulses.
func (a StimulusAction) Interval() time.Duration {
	return seconds(a.IntervalSeconds)
}

func (a StimulusAction) Validate() error {
	switch {
	case a.Mode == "":
		return fmt.Errorf("%w: stimulus mode is required", ErrInvalidAction)
	case a.Repeats < 0:
		return fmt.Errorf("%w: repeats must be >= 0, got %d", ErrInvalidAction, a.Repeats)
	case !validSeconds(a.IntervalSeconds):
		return fmt.Errorf("%w: interval must be between 0 and %v, got %v", ErrInvalidAction, MaxSeconds, a.IntervalSeconds)
	}
	return nil
}

func (a StimulusAction) Record() ActionRecord {
	return ActionRecord{
		Type:     ActionStimulus,
		Mode:     a.Mode,
		Value:    a.Value,
		Repeats:  a.Repeats,
		Interval: a.IntervalSeconds,
	}
}

// WaitAction delays every action after it.
type WaitAction struct {
	Seconds float64
}

func (WaitAction) isAction() {}

func (WaitAction) Type() ActionType { return ActionWait }

// Duration returns the suspension length.
func (a WaitAction) Duration() time.Duration {
	return seconds(a.Seconds)
}

func (a WaitAction) Validate() error {
	if !validSeconds(a.Seconds) {
		return fmt.Errorf("%w: seconds must be between 0 and %v, got %v", ErrInvalidAction, MaxSeconds, a.Seconds)
	}
	return nil
}

func (a WaitAction) Record() ActionRecord {
	return ActionRecord{Type: ActionWait, Seconds: a.Seconds}
}

// ActionRecord is the display shape of an attempted action.
// Stimulus records serialize as {type, mode, value, repeats, interval};
// wait records as {type, seconds}.
type ActionRecord struct {
	Type     ActionType `json:"type"`
	Mode     string     `json:"mode,omitempty"`
	Value    int        `json:"value,omitempty"`
	Repeats  int        `json:"repeats,omitempty"`
	Interval float64    `json:"interval,omitempty"`
	Seconds  float64    `json:"seconds,omitempty"`
}

type stimulusRecordJSON struct {
	Type     ActionType `json:"type"`
	Mode     string     `json:"mode"`
	Value    int        `json:"value"`
	Repeats  int        `json:"repeats"`
	Interval float64    `json:"interval"`
}

type waitRecordJSON struct {
	Type    ActionType `json:"type"`
	Seconds float64    `json:"seconds"`
}

// MarshalJSON keeps zero values that belong to the record's variant.
func (r ActionRecord) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case ActionStimulus:
		return json.Marshal(stimulusRecordJSON{
			Type:     r.Type,
			Mode:     r.Mode,
			Value:    r.Value,
			Repeats:  r.Repeats,
			Interval: r.Interval,
		})
	case ActionWait:
		return json.Marshal(waitRecordJSON{Type: r.Type, Seconds: r.Seconds})
	default:
		type plain ActionRecord
		return json.Marshal(plain(r))
	}
}

// MaxSeconds is the longest wait or interval a time.Duration can hold.
const MaxSeconds = float64(math.MaxInt64) / float64(time.Second)

func validSeconds(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= MaxSeconds
}

// seconds converts v to a Duration, saturating instead of overflowing.
func seconds(v float64) time.Duration {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	ns := v * float64(time.Second)
	if ns >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
