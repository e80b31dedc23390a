package runtime_test

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/haptix/internal/runtime"
	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phraseNode(id, phrase string, actions ...domain.Action) domain.Node {
	return domain.Node{ID: id, Trigger: domain.NewPhraseTrigger(phrase), Actions: actions}
}

func mustGraph(t *testing.T, nodes []domain.Node, edges []domain.Edge, entry ...string) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph(nodes, edges, entry)
	require.NoError(t, err)
	return g
}

func newSession(t *testing.T, g *domain.Graph, d *memory.Dispatcher) *runtime.Session {
	t.Helper()
	return runtime.NewSession("s-1", g, runtime.NewExecutor(d))
}

func TestSession_GreetExample(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("greet", "hello"), phraseNode("done", "bye")},
		[]domain.Edge{{ID: "e1", Source: "greet", Target: "done"}},
		"greet",
	)
	s := newSession(t, g, memory.NewDispatcher())

	step, err := s.Process(context.Background(), "hello there")
	require.NoError(t, err)

	assert.Equal(t, []string{"greet"}, step.ExecutedNodes)
	assert.Equal(t, []string{"e1"}, step.ExecutedEdges)
	assert.Equal(t, []string{"done"}, step.ActiveNodes)
	assert.Empty(t, step.Actions)
	assert.NotNil(t, step.Actions)
}

func TestSession_NonMatchingInputIsIdempotent(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("a", "alpha"), phraseNode("b", "beta")},
		[]domain.Edge{{ID: "e1", Source: "a", Target: "b"}},
		"a",
	)
	d := memory.NewDispatcher()
	s := newSession(t, g, d)

	for i := 0; i < 3; i++ {
		step, err := s.Process(context.Background(), "nothing relevant")
		require.NoError(t, err)
		assert.Empty(t, step.Actions)
		assert.Empty(t, step.ExecutedNodes)
		assert.Empty(t, step.ExecutedEdges)
		assert.Equal(t, []string{"a"}, step.ActiveNodes)
	}
	assert.Empty(t, d.Pulses())
}

func TestSession_StimulusActions(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("n1", "go",
			domain.StimulusAction{Mode: "vibe", Value: 50, Repeats: 2, IntervalSeconds: 0.25},
		)},
		nil,
		"n1",
	)
	d := memory.NewDispatcher()
	s := newSession(t, g, d)

	step, err := s.Process(context.Background(), "Go!")
	require.NoError(t, err)

	assert.Equal(t, []domain.ActionRecord{
		{Type: domain.ActionStimulus, Mode: "vibe", Value: 50, Repeats: 2, Interval: 0.25},
	}, step.Actions)
	assert.Equal(t, []string{"n1"}, step.ExecutedNodes)
	assert.Empty(t, step.ActiveNodes, "terminal node deactivates")

	pulses := d.Pulses()
	require.Len(t, pulses, 2)
	assert.GreaterOrEqual(t, pulses[1].At.Sub(pulses[0].At), 250*time.Millisecond)
}

func TestSession_EmptyActionsStillAdvance(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("a", "next"), phraseNode("b", "x"), phraseNode("c", "y")},
		[]domain.Edge{
			{ID: "ab", Source: "a", Target: "b"},
			{ID: "ac", Source: "a", Target: "c"},
		},
		"a",
	)
	s := newSession(t, g, memory.NewDispatcher())

	step, err := s.Process(context.Background(), "NEXT please")
	require.NoError(t, err)

	assert.Empty(t, step.Actions)
	assert.Equal(t, []string{"a"}, step.ExecutedNodes)
	assert.Equal(t, []string{"ab", "ac"}, step.ExecutedEdges)
	assert.Equal(t, []string{"b", "c"}, step.ActiveNodes)
}

func TestSession_OverlappingTriggersFireTogether(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{
			phraseNode("b", "stop now", domain.StimulusAction{Mode: "beep", Value: 2, Repeats: 1}),
			phraseNode("a", "stop", domain.StimulusAction{Mode: "zap", Value: 1, Repeats: 1}),
		},
		nil,
		"a", "b",
	)
	d := memory.NewDispatcher()
	s := newSession(t, g, d)

	step, err := s.Process(context.Background(), "please stop now")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, step.ExecutedNodes)
	require.Len(t, step.Actions, 2)
	assert.Equal(t, "zap", step.Actions[0].Mode)
	assert.Equal(t, "beep", step.Actions[1].Mode)

	pulses := d.Pulses()
	require.Len(t, pulses, 2)
	assert.Equal(t, "zap", pulses[0].Mode)
	assert.Equal(t, "beep", pulses[1].Mode)
}

func TestSession_NodesActivatedDuringStepWaitForNextStep(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("first", "go"), phraseNode("second", "go")},
		[]domain.Edge{{ID: "e1", Source: "first", Target: "second"}},
		"first",
	)
	s := newSession(t, g, memory.NewDispatcher())

	step, err := s.Process(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, step.ExecutedNodes)
	assert.Equal(t, []string{"second"}, step.ActiveNodes)

	step, err = s.Process(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, step.ExecutedNodes)
	assert.Empty(t, step.ActiveNodes)

	step, err = s.Process(context.Background(), "go")
	require.NoError(t, err, "inert sessions stay valid")
	assert.Empty(t, step.ExecutedNodes)
}

func TestSession_SelfLoopAndFanIn(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("loop", "again"), phraseNode("x", "x"), phraseNode("y", "y"), phraseNode("join", "join")},
		[]domain.Edge{
			{ID: "self", Source: "loop", Target: "loop"},
			{ID: "xj", Source: "x", Target: "join"},
			{ID: "yj", Source: "y", Target: "join"},
		},
		"loop", "x", "y",
	)
	s := newSession(t, g, memory.NewDispatcher())

	step, err := s.Process(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, []string{"self"}, step.ExecutedEdges)
	assert.Equal(t, []string{"loop", "x", "y"}, step.ActiveNodes)

	step, err = s.Process(context.Background(), "x and y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, step.ExecutedNodes)
	assert.Equal(t, []string{"xj", "yj"}, step.ExecutedEdges)
	assert.Equal(t, []string{"join", "loop"}, step.ActiveNodes)
}

func TestSession_Determinism(t *testing.T) {
	build := func() *runtime.Session {
		var nodes []domain.Node
		var entry []string
		for i := 0; i < 20; i++ {
			id := fmt.Sprintf("n%02d", i)
			nodes = append(nodes, phraseNode(id, "ping"))
			entry = append(entry, id)
		}
		return newSession(t, mustGraph(t, nodes, nil, entry...), memory.NewDispatcher())
	}

	first, err := build().Process(context.Background(), "ping")
	require.NoError(t, err)
	second, err := build().Process(context.Background(), "ping")
	require.NoError(t, err)

	assert.Equal(t, first.ExecutedNodes, second.ExecutedNodes)
	assert.IsIncreasing(t, first.ExecutedNodes)
}

func TestSession_ActiveNodesStayWithinGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"red", "green", "blue", "stop", "go"}

	for trial := 0; trial < 25; trial++ {
		var nodes []domain.Node
		var ids []string
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("n%d", i)
			ids = append(ids, id)
			nodes = append(nodes, phraseNode(id, words[rng.Intn(len(words))]))
		}
		var edges []domain.Edge
		for i := 0; i < 12; i++ {
			edges = append(edges, domain.Edge{
				ID:     fmt.Sprintf("e%d", i),
				Source: ids[rng.Intn(len(ids))],
				Target: ids[rng.Intn(len(ids))],
			})
		}
		g := mustGraph(t, nodes, edges, ids[0], ids[1])
		s := newSession(t, g, memory.NewDispatcher())

		for i := 0; i < 10; i++ {
			before := s.ActiveNodes()
			text := words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]
			step, err := s.Process(context.Background(), text)
			require.NoError(t, err)

			for _, id := range step.ActiveNodes {
				assert.True(t, g.HasNode(id), id)
			}
			for i, fired := range step.ExecutedNodes {
				for _, e := range g.Outgoing(fired) {
					// A target that fires later in the same step is consumed again.
					if slices.Contains(step.ExecutedNodes[i+1:], e.Target) {
						continue
					}
					assert.Contains(t, step.ActiveNodes, e.Target)
				}
			}
			if len(step.ExecutedNodes) == 0 {
				assert.Equal(t, before, step.ActiveNodes)
			}
		}
	}
}

func TestSession_SerializesConcurrentCalls(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{
			phraseNode("once", "tap", domain.StimulusAction{Mode: "vibe", Value: 10, Repeats: 1, IntervalSeconds: 0.02}),
			phraseNode("after", "never"),
		},
		[]domain.Edge{{ID: "e1", Source: "once", Target: "after"}},
		"once",
	)
	d := memory.NewDispatcher()
	s := newSession(t, g, d)

	var wg sync.WaitGroup
	var mu sync.Mutex
	fired := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			step, err := s.Process(context.Background(), "tap")
			assert.NoError(t, err)
			mu.Lock()
			fired += len(step.ExecutedNodes)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fired, "a node must not fire twice under concurrent input")
	assert.Len(t, d.Pulses(), 1)
	assert.Equal(t, []string{"after"}, s.ActiveNodes())
}

func TestSession_WaitDoesNotBlockOtherSessions(t *testing.T) {
	slow := mustGraph(t, []domain.Node{phraseNode("w", "wait", domain.WaitAction{Seconds: 1})}, nil, "w")
	fast := mustGraph(t, []domain.Node{phraseNode("f", "fast")}, nil, "f")

	exec := runtime.NewExecutor(memory.NewDispatcher())
	a := runtime.NewSession("a", slow, exec)
	b := runtime.NewSession("b", fast, exec)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.Process(context.Background(), "wait")
	}()
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	step, err := b.Process(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, step.ExecutedNodes)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	<-done
}

func TestSession_StopRejectsFurtherCalls(t *testing.T) {
	g := mustGraph(t, []domain.Node{phraseNode("a", "a")}, nil, "a")
	s := newSession(t, g, memory.NewDispatcher())

	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
	assert.True(t, s.Stopped())

	_, err := s.Process(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSession_SnapshotAndHooks(t *testing.T) {
	g := mustGraph(t,
		[]domain.Node{phraseNode("greet", "hello"), phraseNode("done", "bye")},
		[]domain.Edge{{ID: "e1", Source: "greet", Target: "done"}},
		"greet",
	)

	var fired []string
	var transcripts int
	hooks := domain.LifecycleHooks{
		OnNodeFire:   func(ctx context.Context, e *domain.NodeEvent) { fired = append(fired, e.NodeID) },
		OnTranscript: func(ctx context.Context, e *domain.TranscriptEvent) { transcripts++ },
	}
	s := runtime.NewSession("s-9", g, runtime.NewExecutor(memory.NewDispatcher()), runtime.WithSessionHooks(hooks))

	snap := s.Snapshot()
	assert.Equal(t, "s-9", snap.ID)
	assert.Equal(t, []string{"greet"}, snap.ActiveNodes)
	assert.Empty(t, snap.LastExecutedNodes)

	_, err := s.Process(context.Background(), "hello")
	require.NoError(t, err)

	snap = s.Snapshot()
	assert.Equal(t, []string{"done"}, snap.ActiveNodes)
	assert.Equal(t, []string{"greet"}, snap.LastExecutedNodes)
	assert.Equal(t, []string{"e1"}, snap.LastExecutedEdges)

	_, err = s.Process(context.Background(), "nope")
	require.NoError(t, err)
	snap = s.Snapshot()
	assert.Empty(t, snap.LastExecutedNodes, "last step is recomputed on every call")

	assert.Equal(t, []string{"greet"}, fired)
	assert.Equal(t, 2, transcripts)
}
