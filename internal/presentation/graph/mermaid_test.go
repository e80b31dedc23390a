package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/haptix/internal/presentation/graph"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph(
		[]domain.Node{
			{ID: "greet", Trigger: domain.NewPhraseTrigger("say \"hi\""), Actions: []domain.Action{domain.StimulusAction{Mode: "vibe", Value: 10, Repeats: 1}}},
			{ID: "wind-down", Trigger: domain.NewPhraseTrigger("relax"), Actions: []domain.Action{domain.WaitAction{Seconds: 1}}},
			{ID: "path/end", Trigger: domain.NewPhraseTrigger("bye")},
		},
		[]domain.Edge{
			{ID: "e1", Source: "greet", Target: "wind-down"},
			{ID: "e2", Source: "wind-down", Target: "path/end"},
		},
		[]string{"greet"},
	)
	require.NoError(t, err)
	return g
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(sampleGraph(t), nil)

	for _, want := range []string{
		"graph TD\n",
		`greet(("greet <br/> 🎙️ say 'hi'"))`,
		`wind_down["wind-down <br/> 🎙️ relax"]`,
		`path_end[/"path/end <br/> 🎙️ bye"/]`,
		`greet -- "e1" --> wind_down`,
		`wind_down -- "e2" --> path_end`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(sampleGraph(t), &graph.GraphOverlay{
		ActiveNodes:   []string{"wind-down", "ghost"},
		ExecutedNodes: []string{"greet", "greet"},
		ExecutedEdges: []string{"e1"},
	})

	assert.Contains(t, out, "class wind_down active;")
	assert.Equal(t, 1, strings.Count(out, "class greet fired;"))
	assert.NotContains(t, out, "ghost")
	assert.Contains(t, out, "linkStyle 0 ")
	assert.NotContains(t, out, "linkStyle 1 ")
}

func TestGenerateMermaid_CollidingIDs(t *testing.T) {
	g, err := domain.NewGraph(
		[]domain.Node{
			{ID: "a-b", Trigger: domain.NewPhraseTrigger("dash")},
			{ID: "a_b", Trigger: domain.NewPhraseTrigger("underscore")},
			{ID: "a_b_2", Trigger: domain.NewPhraseTrigger("suffix")},
		},
		[]domain.Edge{{ID: "e1", Source: "a-b", Target: "a_b"}},
		[]string{"a-b"},
	)
	require.NoError(t, err)

	out := graph.GenerateMermaid(g, &graph.GraphOverlay{ActiveNodes: []string{"a_b"}})

	assert.Contains(t, out, `a_b(("a-b <br/> 🎙️ dash"))`)
	assert.Contains(t, out, `a_b_2[/"a_b <br/> 🎙️ underscore"/]`)
	assert.Contains(t, out, `a_b_2_2[/"a_b_2 <br/> 🎙️ suffix"/]`)
	assert.Contains(t, out, `a_b -- "e1" --> a_b_2`)
	assert.Contains(t, out, "class a_b_2 active;")
}
