package ports

import (
	"context"

	"github.com/aretw0/haptix/pkg/domain"
)

// TriggerStore persists trigger configurations.
type TriggerStore interface {
	// Save creates or replaces the configuration with the same ID.
	Save(ctx context.Context, cfg domain.TriggerConfig) error

	// Get returns domain.ErrTriggerNotFound if the ID is unknown.
	Get(ctx context.Context, id string) (domain.TriggerConfig, error)

	// Delete returns domain.ErrTriggerNotFound if the ID is unknown.
	Delete(ctx context.Context, id string) error

	// List returns every configuration ordered by ID.
	List(ctx context.Context) ([]domain.TriggerConfig, error)
}
