package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/haptix/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	ActiveNodes   []string
	ExecutedNodes []string
	ExecutedEdges []string
}

// GenerateMermaid produces a Mermaid flowchart for g.
// It applies semantic styling:
// - Entry: ((Circle))
// - Silent (no actions): [/Parallelogram/]
// - Default: [Rectangle]
// Node labels carry the trigger phrase and edge labels the edge ID.
// Overlay styles (Active/Fired) are applied if overlay is non-nil.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := make(map[string]bool)
	for _, id := range g.EntryNodes() {
		entry[id] = true
	}

	ids := mermaidIDs(g.NodeIDs())

	for _, id := range g.NodeIDs() {
		node, _ := g.Node(id)
		safeID := ids[id]

		opener, closer := "[", "]"
		switch {
		case entry[id]:
			opener, closer = "((", "))"
		case len(node.Actions) == 0:
			opener, closer = "[/", "/]"
		}

		label := escapeLabel(id)
		if phrase := triggerLabel(node.Trigger); phrase != "" {
			label = fmt.Sprintf("%s <br/> %s", label, escapeLabel(phrase))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	fired := make(map[string]bool)
	if overlay != nil {
		for _, id := range overlay.ExecutedEdges {
			fired[id] = true
		}
	}

	var firedLinks []int
	for i, e := range g.Edges() {
		arrow := fmt.Sprintf("-- \"%s\" -->", escapeLabel(e.ID))
		fmt.Fprintf(&sb, "    %s %s %s\n", ids[e.Source], arrow, ids[e.Target])
		if fired[e.ID] {
			firedLinks = append(firedLinks, i)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef fired fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		writeClass(&sb, ids, overlay.ExecutedNodes, "fired")
		writeClass(&sb, ids, overlay.ActiveNodes, "active")

		for _, i := range firedLinks {
			fmt.Fprintf(&sb, "    linkStyle %d stroke:#01579b,stroke-width:3px;\n", i)
		}
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids map[string]string, nodes []string, class string) {
	seen := make(map[string]bool)
	for _, id := range nodes {
		safeID, ok := ids[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

// mermaidIDs maps node IDs to unique Mermaid identifiers. IDs that sanitize
// to the same text get a numeric suffix, assigned in ascending ID order.
func mermaidIDs(nodeIDs []string) map[string]string {
	out := make(map[string]string, len(nodeIDs))
	used := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		base := sanitizeMermaidID(id)
		safeID := base
		for n := 2; used[safeID]; n++ {
			safeID = fmt.Sprintf("%s_%d", base, n)
		}
		used[safeID] = true
		out[id] = safeID
	}
	return out
}

func triggerLabel(t domain.Trigger) string {
	if p, ok := t.(domain.PhraseTrigger); ok {
		return "🎙️ " + p.Phrase()
	}
	if t != nil {
		return string(t.Kind())
	}
	return ""
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
