package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/haptix/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTriggerStoreContract runs a suite of tests to verify that a TriggerStore implementation
// adheres to the defined interface contract.
func RunTriggerStoreContract(t *testing.T, store TriggerStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	sample := func(id string) domain.TriggerConfig {
		repeats := 2
		return domain.TriggerConfig{
			ID:   id,
			Name: "Contract " + id,
			Definition: domain.GraphDefinition{
				Nodes: []domain.NodeDefinition{{
					ID:      "greet",
					Trigger: domain.TriggerDefinition{Type: domain.TriggerPhrase, Phrase: "hello"},
					Actions: []domain.ActionDefinition{
						{Type: domain.ActionStimulus, Mode: "vibe", Value: 50, Repeats: &repeats, Interval: 0.25},
					},
				}},
				EntryNodes: []string{"greet"},
			},
			UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("Save and Get", func(t *testing.T) {
		cfg := sample(prefix + "-a")
		require.NoError(t, store.Save(ctx, cfg))

		loaded, err := store.Get(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, cfg.Name, loaded.Name)
		assert.Equal(t, cfg.Definition, loaded.Definition)
		assert.True(t, cfg.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save replaces", func(t *testing.T) {
		cfg := sample(prefix + "-b")
		require.NoError(t, store.Save(ctx, cfg))
		cfg.Name = "renamed"
		require.NoError(t, store.Save(ctx, cfg))

		loaded, err := store.Get(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", loaded.Name)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+prefix)
		assert.ErrorIs(t, err, domain.ErrTriggerNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		cfg := sample(prefix + "-c")
		require.NoError(t, store.Save(ctx, cfg))

		require.NoError(t, store.Delete(ctx, cfg.ID))

		_, err := store.Get(ctx, cfg.ID)
		assert.ErrorIs(t, err, domain.ErrTriggerNotFound, "Get after Delete should return ErrTriggerNotFound")
		assert.ErrorIs(t, store.Delete(ctx, cfg.ID), domain.ErrTriggerNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := prefix+"-list-2", prefix+"-list-1"
		require.NoError(t, store.Save(ctx, sample(id1)))
		require.NoError(t, store.Save(ctx, sample(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		all, err := store.List(ctx)
		require.NoError(t, err)

		var ids []string
		for _, c := range all {
			ids = append(ids, c.ID)
		}
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsIncreasing(t, ids)
	})
}
