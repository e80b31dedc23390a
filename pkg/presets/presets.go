// Package presets holds the named stimulus patterns available to workflows
// and to direct stimulus requests.
package presets

import (
	"fmt"
	"sort"

	"github.com/aretw0/haptix/pkg/domain"
)

const (
	Single    = "single"
	Double    = "double"
	Triple    = "triple"
	Long      = "long"
	Heartbeat = "heartbeat"
	Breathing = "breathing"
)

// Builder produces the action sequence of a preset for a mode and loop count.
// loops is always >= 1.
type Builder func(mode string, loops int) []domain.Action

// Catalog resolves preset names. It implements domain.PresetResolver.
type Catalog struct {
	builders map[string]Builder
}

// NewCatalog returns a catalog with the built-in presets.
func NewCatalog() *Catalog {
	return &Catalog{builders: map[string]Builder{
		Single:    burst(1),
		Double:    burst(2),
		Triple:    burst(3),
		Long:      long,
		Heartbeat: heartbeat,
		Breathing: breathing,
	}}
}

// Register adds or replaces a preset.
func (c *Catalog) Register(name string, b Builder) {
	c.builders[name] = b
}

// Names lists the registered presets in ascending order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.builders))
	for name := range c.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.builders[name]
	return ok
}

// Resolve expands a preset. Loops below one run once.
func (c *Catalog) Resolve(name, mode string, loops int) ([]domain.Action, error) {
	b, ok := c.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPreset, name)
	}
	if mode == "" {
		return nil, fmt.Errorf("%w: preset %q needs a stimulus mode", domain.ErrInvalidAction, name)
	}
	if loops < 1 {
		loops = 1
	}
	return b(mode, loops), nil
}

func stimulus(mode string, value, repeats int, interval float64) domain.StimulusAction {
	return domain.StimulusAction{Mode: mode, Value: value, Repeats: repeats, IntervalSeconds: interval}
}

func wait(seconds float64) domain.WaitAction {
	return domain.WaitAction{Seconds: seconds}
}

// burst sends n medium pulses half a second apart, loops times.
func burst(n int) Builder {
	return func(mode string, loops int) []domain.Action {
		actions := make([]domain.Action, 0, loops)
		for i := 0; i < loops; i++ {
			actions = append(actions, stimulus(mode, 50, n, 0.5))
		}
		return actions
	}
}

// long sends a strong pulse train with no gaps, then rests a second.
func long(mode string, loops int) []domain.Action {
	var actions []domain.Action
	for i := 0; i < loops; i++ {
		actions = append(actions, stimulus(mode, 70, 5, 0), wait(1))
	}
	return actions
}

// heartbeat is a light beat followed by two stronger ones, every 1.5s.
func heartbeat(mode string, loops int) []domain.Action {
	var actions []domain.Action
	for i := 0; i < loops; i++ {
		actions = append(actions,
			stimulus(mode, 10, 1, 0),
			stimulus(mode, 25, 2, 0),
			wait(1.5),
		)
	}
	return actions
}

// breathing paces inhale and exhale, lengthening the exhale each loop up to seven pulses.
func breathing(mode string, loops int) []domain.Action {
	actions := []domain.Action{
		stimulus(mode, 30, 3, 0.25),
		wait(1),
	}
	for i := 0; i < loops; i++ {
		actions = append(actions,
			stimulus(mode, 50, 5, 0),
			wait(1),
			stimulus(mode, 30, min(7, 5+i), 0),
			wait(1),
		)
	}
	return actions
}
