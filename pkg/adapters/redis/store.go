package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/haptix/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "haptix:triggers:"

// TriggerStore implements ports.TriggerStore on Redis.
//
// Each configuration is a JSON document under {prefix}{id}. A sorted set
// under {prefix}index holds every ID with score 0, so ZRANGE returns them in
// lexicographic order.
type TriggerStore struct {
	client backend.UniversalClient
	prefix string
}

// Option configures the TriggerStore.
type Option func(*TriggerStore)

// WithPrefix sets the key prefix (default "haptix:triggers:").
func WithPrefix(prefix string) Option {
	return func(s *TriggerStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New connects to the Redis server at addr.
func New(addr, password string, db int, opts ...Option) *TriggerStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *TriggerStore {
	s := &TriggerStore{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *TriggerStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *TriggerStore) Close() error {
	return s.client.Close()
}

func (s *TriggerStore) key(id string) string {
	return s.prefix + "doc:" + id
}

func (s *TriggerStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the document and indexes its ID atomically.
func (s *TriggerStore) Save(ctx context.Context, cfg domain.TriggerConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger %s: %w", cfg.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(cfg.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: cfg.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save trigger %s: %w", cfg.ID, err)
	}
	return nil
}

// Get loads a document by ID.
func (s *TriggerStore) Get(ctx context.Context, id string) (domain.TriggerConfig, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.TriggerConfig{}, domain.ErrTriggerNotFound
		}
		return domain.TriggerConfig{}, fmt.Errorf("failed to load trigger %s: %w", id, err)
	}
	return decode(id, data)
}

// Delete removes the document and its index entry.
func (s *TriggerStore) Delete(ctx context.Context, id string) error {
	var del *backend.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete trigger %s: %w", id, err)
	}
	if del.Val() == 0 {
		return domain.ErrTriggerNotFound
	}
	return nil
}

// List returns every document ordered by ID. Index entries whose document
// has disappeared are skipped and pruned.
func (s *TriggerStore) List(ctx context.Context) ([]domain.TriggerConfig, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers: %w", err)
	}
	if len(ids) == 0 {
		return []domain.TriggerConfig{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load triggers: %w", err)
	}

	out := make([]domain.TriggerConfig, 0, len(ids))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		cfg, err := decode(ids[i], []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}

	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return out, nil
}

func decode(id string, data []byte) (domain.TriggerConfig, error) {
	var cfg domain.TriggerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.TriggerConfig{}, fmt.Errorf("failed to unmarshal trigger %s: %w", id, err)
	}
	return cfg, nil
}
