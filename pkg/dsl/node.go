package dsl

import (
	"fmt"

	"github.com/aretw0/haptix/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.NodeDefinition
	edges   []domain.EdgeDefinition
	builder *Builder
}

// On sets the phrase the node listens for.
func (n *NodeBuilder) On(phrase string) *NodeBuilder {
	n.node.Trigger.Phrase = phrase
	return n
}

// Stimulus appends a single pulse.
func (n *NodeBuilder) Stimulus(mode string, value int) *NodeBuilder {
	return n.Pulses(mode, value, 1, 0)
}

// Pulses appends a stimulus sent repeats times, pausing interval seconds after each pulse.
func (n *NodeBuilder) Pulses(mode string, value, repeats int, interval float64) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, domain.ActionDefinition{
		Type:     domain.ActionStimulus,
		Mode:     mode,
		Value:    value,
		Repeats:  &repeats,
		Interval: interval,
	})
	return n
}

// Wait appends a pause.
func (n *NodeBuilder) Wait(seconds float64) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, domain.ActionDefinition{
		Type:    domain.ActionWait,
		Seconds: seconds,
	})
	return n
}

// Preset appends a named pattern, expanded when the graph is built.
func (n *NodeBuilder) Preset(name, mode string, loops int) *NodeBuilder {
	n.node.Actions = append(n.node.Actions, domain.ActionDefinition{
		Type:   domain.ActionPreset,
		Preset: name,
		Mode:   mode,
		Loops:  loops,
	})
	return n
}

// Go adds an edge to target, named "<source>-><target>".
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.Edge(fmt.Sprintf("%s->%s", n.node.ID, target), target)
}

// Edge adds an edge with an explicit ID.
func (n *NodeBuilder) Edge(id, target string) *NodeBuilder {
	n.edges = append(n.edges, domain.EdgeDefinition{
		ID:     id,
		Source: n.node.ID,
		Target: target,
	})
	return n
}

// Terminal drops the node's outgoing edges (end of the flow).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.edges = nil
	return n
}

// Build returns the underlying node definition.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.NodeDefinition {
	node := n.node
	node.Actions = append([]domain.ActionDefinition(nil), n.node.Actions...)
	return node
}
