package domain

import (
	"fmt"
)

// GraphDefinition is the client-submitted wire form of a workflow.
type GraphDefinition struct {
	Nodes []NodeDefinition `json:"nodes" yaml:"nodes"`
	Edges []EdgeDefinition `json:"edges,omitempty" yaml:"edges,omitempty"`

	// EntryNodes lists the nodes listening when a session starts.
	// When empty, every node without incoming edges is an entry node.
	EntryNodes []string `json:"entry_nodes,omitempty" yaml:"entry_nodes,omitempty"`
}

// NodeDefinition describes one node.
type NodeDefinition struct {
	ID      string             `json:"id" yaml:"id"`
	Trigger TriggerDefinition  `json:"trigger" yaml:"trigger"`
	Actions []ActionDefinition `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// TriggerDefinition describes a trigger condition. Type defaults to "phrase".
type TriggerDefinition struct {
	Type   TriggerKind `json:"type,omitempty" yaml:"type,omitempty"`
	Phrase string      `json:"phrase" yaml:"phrase"`
}

// ActionDefinition describes an action.
//
// Stimulus actions use Mode, Value, Repeats (default 1) and Interval.
// Wait actions use Seconds. Preset actions use Preset, Mode and Loops (default 1).
type ActionDefinition struct {
	Type     ActionType `json:"type" yaml:"type"`
	Mode     string     `json:"mode,omitempty" yaml:"mode,omitempty"`
	Value    int        `json:"value,omitempty" yaml:"value,omitempty"`
	Repeats  *int       `json:"repeats,omitempty" yaml:"repeats,omitempty"`
	Interval float64    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Seconds  float64    `json:"seconds,omitempty" yaml:"seconds,omitempty"`
	Preset   string     `json:"preset,omitempty" yaml:"preset,omitempty"`
	Loops    int        `json:"loops,omitempty" yaml:"loops,omitempty"`
}

// EdgeDefinition describes an edge.
type EdgeDefinition struct {
	ID     string `json:"id" yaml:"id"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// PresetResolver expands a named stimulus pattern into concrete actions.
type PresetResolver interface {
	Resolve(name, mode string, loops int) ([]Action, error)
}

type buildConfig struct {
	presets PresetResolver
}

// BuildOption configures BuildGraph.
type BuildOption func(*buildConfig)

// WithPresets enables "preset" actions, expanded through r.
func WithPresets(r PresetResolver) BuildOption {
	return func(c *buildConfig) {
		c.presets = r
	}
}

// BuildGraph converts a definition into an immutable Graph.
// Every failure is a *GraphValidationError.
func BuildGraph(def GraphDefinition, opts ...BuildOption) (*Graph, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	nodes := make([]Node, 0, len(def.Nodes))
	for _, nd := range def.Nodes {
		trigger, err := buildTrigger(nd.ID, nd.Trigger)
		if err != nil {
			return nil, err
		}

		var actions []Action
		for i, ad := range nd.Actions {
			built, err := buildAction(cfg, ad)
			if err != nil {
				return nil, invalidAction(nd.ID, i, err)
			}
			actions = append(actions, built...)
		}

		nodes = append(nodes, Node{ID: nd.ID, Trigger: trigger, Actions: actions})
	}

	edges := make([]Edge, 0, len(def.Edges))
	for _, ed := range def.Edges {
		edges = append(edges, Edge(ed))
	}

	entry := def.EntryNodes
	if len(entry) == 0 {
		entry = rootNodes(def)
	}

	return NewGraph(nodes, edges, entry)
}

func buildTrigger(nodeID string, td TriggerDefinition) (Trigger, error) {
	switch td.Type {
	case "", TriggerPhrase:
		if td.Phrase == "" {
			return nil, invalidGraph(nodeID, "trigger phrase is empty")
		}
		return NewPhraseTrigger(td.Phrase), nil
	default:
		return nil, invalidGraph(nodeID, "unknown trigger type %q", td.Type)
	}
}

func buildAction(cfg *buildConfig, ad ActionDefinition) ([]Action, error) {
	var built []Action
	switch ad.Type {
	case ActionStimulus:
		repeats := 1
		if ad.Repeats != nil {
			repeats = *ad.Repeats
		}
		built = []Action{StimulusAction{
			Mode:            ad.Mode,
			Value:           ad.Value,
			Repeats:         repeats,
			IntervalSeconds: ad.Interval,
		}}
	case ActionWait:
		built = []Action{WaitAction{Seconds: ad.Seconds}}
	case ActionPreset:
		if cfg.presets == nil {
			return nil, fmt.Errorf("preset actions are not enabled")
		}
		if ad.Loops < 0 {
			return nil, fmt.Errorf("%w: loops must be >= 0, got %d", ErrInvalidAction, ad.Loops)
		}
		expanded, err := cfg.presets.Resolve(ad.Preset, ad.Mode, ad.Loops)
		if err != nil {
			return nil, err
		}
		built = expanded
	default:
		return nil, fmt.Errorf("unknown action type %q", ad.Type)
	}

	for _, a := range built {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return built, nil
}

// rootNodes returns the IDs of nodes that no edge targets, in definition order.
func rootNodes(def GraphDefinition) []string {
	targeted := make(map[string]bool, len(def.Edges))
	for _, e := range def.Edges {
		targeted[e.Target] = true
	}
	var roots []string
	for _, n := range def.Nodes {
		if !targeted[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	return roots
}
