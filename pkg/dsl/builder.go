package dsl

import (
	"fmt"

	"github.com/aretw0/haptix/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
	entry []string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.NodeDefinition{
			ID:      id,
			Trigger: domain.TriggerDefinition{Type: domain.TriggerPhrase},
		},
		builder: b,
	}
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Entry sets the nodes listening when a session starts.
// Without it, every node with no incoming edge is an entry node.
func (b *Builder) Entry(ids ...string) *Builder {
	b.entry = append(b.entry, ids...)
	return b
}

// Definition returns the document form of the graph, in the order nodes
// were added. It can be stored as a trigger configuration or sent to the API.
func (b *Builder) Definition() domain.GraphDefinition {
	def := domain.GraphDefinition{
		Nodes:      make([]domain.NodeDefinition, 0, len(b.nodes)),
		EntryNodes: append([]string(nil), b.entry...),
	}
	for _, nb := range b.nodes {
		def.Nodes = append(def.Nodes, nb.Build())
		def.Edges = append(def.Edges, nb.edges...)
	}
	return def
}

// Build validates the definition and compiles it into a Graph.
func (b *Builder) Build(opts ...domain.BuildOption) (*domain.Graph, error) {
	g, err := domain.BuildGraph(b.Definition(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}
