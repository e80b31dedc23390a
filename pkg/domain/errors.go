package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is the root of every graph construction failure.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrInvalidAction is returned when an action carries out-of-range values.
var ErrInvalidAction = errors.New("invalid action")

// ErrSessionNotFound is returned when a session ID is unknown or was stopped.
var ErrSessionNotFound = errors.New("session not found")

// ErrTriggerNotFound is returned when a stored trigger configuration does not exist.
var ErrTriggerNotFound = errors.New("trigger not found")

// ErrUnknownPreset is returned when a stimulus preset name is not registered.
var ErrUnknownPreset = errors.New("unknown preset")

// ErrDispatchFailed marks a single stimulus pulse that did not reach the hardware.
var ErrDispatchFailed = errors.New("stimulus dispatch failed")

// GraphValidationError describes a malformed workflow definition.
// Ref names the offending identifier (node, edge or field path) when there is one.
type GraphValidationError struct {
	Ref    string
	Reason string
	Err    error
}

func (e *GraphValidationError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidGraph, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidGraph, e.Ref, e.Reason)
}

func (e *GraphValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidGraph}
	}
	return []error{ErrInvalidGraph, e.Err}
}

func invalidGraph(ref, format string, args ...any) error {
	return &GraphValidationError{Ref: ref, Reason: fmt.Sprintf(format, args...)}
}

func invalidAction(ref string, index int, cause error) error {
	return &GraphValidationError{Ref: ref, Reason: fmt.Sprintf("action %d: %v", index, cause), Err: cause}
}

// DispatchError is a failed pulse. It is logged and counted, never returned
// out of a transcript step.
type DispatchError struct {
	Mode  string
	Value int
	Pulse int
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s (mode=%s value=%d pulse=%d): %v", ErrDispatchFailed, e.Mode, e.Value, e.Pulse, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{ErrDispatchFailed, e.Err}
}
