package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/haptix/internal/runtime"
	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.NewGraph(
		[]domain.Node{
			{ID: "greet", Trigger: domain.NewPhraseTrigger("hello")},
			{ID: "done", Trigger: domain.NewPhraseTrigger("bye")},
		},
		[]domain.Edge{{ID: "e1", Source: "greet", Target: "done"}},
		[]string{"greet"},
	)
	require.NoError(t, err)
	return g
}

func newRegistry(opts ...session.Option) *session.Registry {
	return session.NewRegistry(runtime.NewExecutor(memory.NewDispatcher()), opts...)
}

func TestRegistry_Lifecycle(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id, err := reg.Create(ctx, greetGraph(t))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{id}, reg.List())

	s, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"greet"}, s.ActiveNodes())

	step, err := reg.Process(ctx, id, "hello there")
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, step.ActiveNodes)

	// Get returns the authoritative session, so its state reflects the step.
	again, err := reg.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, []string{"done"}, again.ActiveNodes())

	require.NoError(t, reg.Delete(ctx, id))
	_, err = reg.Get(id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, reg.Delete(ctx, id), domain.ErrSessionNotFound)
	assert.Zero(t, reg.Len())
}

func TestRegistry_UnknownSession(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()

	id, err := reg.Create(ctx, greetGraph(t))
	require.NoError(t, err)

	_, err = reg.Process(ctx, "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, reg.Delete(ctx, "missing"), domain.ErrSessionNotFound)

	// Failed lookups leave the registry untouched.
	assert.Equal(t, []string{id}, reg.List())
}

func TestRegistry_NilGraph(t *testing.T) {
	_, err := newRegistry().Create(context.Background(), nil)
	assert.ErrorIs(t, err, session.ErrNilGraph)
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()
	g := greetGraph(t)

	a, err := reg.Create(ctx, g)
	require.NoError(t, err)
	b, err := reg.Create(ctx, g)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	_, err = reg.Process(ctx, a, "hello")
	require.NoError(t, err)

	sb, _ := reg.Get(b)
	assert.Equal(t, []string{"greet"}, sb.ActiveNodes(), "graph is shared, state is not")
}

func TestRegistry_IDGeneratorCollision(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	reg := newRegistry(session.WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	ctx := context.Background()

	first, err := reg.Create(ctx, greetGraph(t))
	require.NoError(t, err)
	second, err := reg.Create(ctx, greetGraph(t))
	require.NoError(t, err)

	assert.Equal(t, "dup", first)
	assert.Equal(t, "fresh", second)
}

func TestRegistry_Hooks(t *testing.T) {
	var mu sync.Mutex
	var events []domain.EventType
	record := func(e domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	}
	hooks := domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) { record(e.Type) },
		OnSessionStop:  func(ctx context.Context, e *domain.SessionEvent) { record(e.Type) },
		OnNodeFire:     func(ctx context.Context, e *domain.NodeEvent) { record(e.Type) },
	}
	reg := newRegistry(session.WithHooks(hooks))
	ctx := context.Background()

	id, err := reg.Create(ctx, greetGraph(t))
	require.NoError(t, err)
	_, err = reg.Process(ctx, id, "hello")
	require.NoError(t, err)
	require.NoError(t, reg.Delete(ctx, id))

	assert.Equal(t, []domain.EventType{domain.EventSessionStart, domain.EventNodeFire, domain.EventSessionStop}, events)
}

func TestRegistry_DeleteDuringQueuedCall(t *testing.T) {
	g, err := domain.NewGraph(
		[]domain.Node{
			{ID: "slow", Trigger: domain.NewPhraseTrigger("slow"), Actions: []domain.Action{domain.WaitAction{Seconds: 0.2}}},
		},
		nil,
		[]string{"slow"},
	)
	require.NoError(t, err)

	reg := newRegistry()
	ctx := context.Background()
	id, err := reg.Create(ctx, g)
	require.NoError(t, err)
	s, err := reg.Get(id)
	require.NoError(t, err)

	inFlight := make(chan runtime.Step, 1)
	go func() {
		step, _ := s.Process(ctx, "slow")
		inFlight <- step
	}()
	time.Sleep(30 * time.Millisecond)

	queued := make(chan error, 1)
	go func() {
		_, err := s.Process(ctx, "slow")
		queued <- err
	}()
	time.Sleep(30 * time.Millisecond)

	// Delete must not wait for the in-flight call.
	start := time.Now()
	require.NoError(t, reg.Delete(ctx, id))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	step := <-inFlight
	assert.Equal(t, []string{"slow"}, step.ExecutedNodes, "in-flight work completes")
	assert.ErrorIs(t, <-queued, domain.ErrSessionNotFound)
}

func TestRegistry_ConcurrentCreateDelete(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()
	g := greetGraph(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id, err := reg.Create(ctx, g)
			assert.NoError(t, err)
			_, err = reg.Process(ctx, id, fmt.Sprintf("hello %d", n))
			assert.NoError(t, err)
			assert.NoError(t, reg.Delete(ctx, id))
		}(i)
	}
	wg.Wait()

	assert.Zero(t, reg.Len())
}

func TestRegistry_Close(t *testing.T) {
	reg := newRegistry()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := reg.Create(ctx, greetGraph(t))
		require.NoError(t, err)
	}

	reg.Close(ctx)
	assert.Zero(t, reg.Len())
}
