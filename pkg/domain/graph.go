package domain

import (
	"slices"
	"sort"
)

// Graph is an immutable, validated workflow.
// It is shared by every session that runs it without synchronization.
type Graph struct {
	nodes    map[string]Node
	nodeIDs  []string
	edges    []Edge
	outgoing map[string][]Edge
	entry    []string
}

// NewGraph validates the references between nodes, edges and entry nodes and
// returns the resulting graph. Inputs are copied; later changes to them do not
// affect the graph.
func NewGraph(nodes []Node, edges []Edge, entryNodes []string) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]Node, len(nodes)),
		nodeIDs:  make([]string, 0, len(nodes)),
		edges:    make([]Edge, 0, len(edges)),
		outgoing: make(map[string][]Edge),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, invalidGraph("", "node with empty id")
		}
		if _, dup := g.nodes[n.ID]; dup {
			return nil, invalidGraph(n.ID, "duplicate node id")
		}
		if n.Trigger == nil {
			return nil, invalidGraph(n.ID, "node has no trigger")
		}
		for i, a := range n.Actions {
			if a == nil {
				return nil, invalidGraph(n.ID, "action %d is nil", i)
			}
			if err := a.Validate(); err != nil {
				return nil, invalidAction(n.ID, i, err)
			}
		}
		g.nodes[n.ID] = n.clone()
		g.nodeIDs = append(g.nodeIDs, n.ID)
	}
	sort.Strings(g.nodeIDs)

	seenEdges := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID == "" {
			return nil, invalidGraph("", "edge with empty id")
		}
		if seenEdges[e.ID] {
			return nil, invalidGraph(e.ID, "duplicate edge id")
		}
		seenEdges[e.ID] = true
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, invalidGraph(e.Source, "edge %q references unknown source node", e.ID)
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, invalidGraph(e.Target, "edge %q references unknown target node", e.ID)
		}
		g.edges = append(g.edges, e)
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	}

	entrySet := make(map[string]bool, len(entryNodes))
	for _, id := range entryNodes {
		if _, ok := g.nodes[id]; !ok {
			return nil, invalidGraph(id, "entry node does not exist")
		}
		if !entrySet[id] {
			entrySet[id] = true
			g.entry = append(g.entry, id)
		}
	}
	sort.Strings(g.entry)

	return g, nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// HasNode reports whether id names a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns all node IDs in ascending order.
func (g *Graph) NodeIDs() []string {
	return slices.Clone(g.nodeIDs)
}

// Edges returns the edges in definition order.
func (g *Graph) Edges() []Edge {
	return slices.Clone(g.edges)
}

// Outgoing returns the edges whose source is id, in definition order.
func (g *Graph) Outgoing(id string) []Edge {
	return slices.Clone(g.outgoing[id])
}

// EntryNodes returns the nodes active when a session starts, in ascending order.
func (g *Graph) EntryNodes() []string {
	return slices.Clone(g.entry)
}
