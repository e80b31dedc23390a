package domain

import "slices"

// Node is one listening point in the graph.
type Node struct {
	ID      string
	Trigger Trigger
	Actions []Action
}

func (n Node) clone() Node {
	n.Actions = slices.Clone(n.Actions)
	return n
}

// Edge is a transition taken when Source fires; it activates Target.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}
