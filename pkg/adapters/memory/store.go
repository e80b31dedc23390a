package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/haptix/pkg/domain"
)

// TriggerStore implements ports.TriggerStore in memory.
// Safe for concurrent use.
type TriggerStore struct {
	data map[string]domain.TriggerConfig
	mu   sync.RWMutex
}

// NewTriggerStore creates a new in-memory trigger store.
func NewTriggerStore() *TriggerStore {
	return &TriggerStore{
		data: make(map[string]domain.TriggerConfig),
	}
}

// Save stores a copy of the configuration.
func (s *TriggerStore) Save(ctx context.Context, cfg domain.TriggerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[cfg.ID] = copyConfig(cfg)
	return nil
}

// Get returns a copy so callers can't mutate store state by reference.
func (s *TriggerStore) Get(ctx context.Context, id string) (domain.TriggerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.data[id]
	if !ok {
		return domain.TriggerConfig{}, domain.ErrTriggerNotFound
	}
	return copyConfig(cfg), nil
}

// Delete removes the configuration.
func (s *TriggerStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return domain.ErrTriggerNotFound
	}
	delete(s.data, id)
	return nil
}

// List returns every configuration ordered by ID.
func (s *TriggerStore) List(ctx context.Context) ([]domain.TriggerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TriggerConfig, 0, len(s.data))
	for _, cfg := range s.data {
		out = append(out, copyConfig(cfg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copyConfig(cfg domain.TriggerConfig) domain.TriggerConfig {
	def := cfg.Definition
	def.Nodes = make([]domain.NodeDefinition, len(cfg.Definition.Nodes))
	for i, n := range cfg.Definition.Nodes {
		n.Actions = slices.Clone(n.Actions)
		def.Nodes[i] = n
	}
	def.Edges = slices.Clone(def.Edges)
	def.EntryNodes = slices.Clone(def.EntryNodes)
	cfg.Definition = def
	return cfg
}
