package ports

import (
	"context"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// AddressRepository persists the address catalog.
type AddressRepository interface {
	// List returns the whole catalog ordered by name. It is the catalog
	// snapshot handed to the proximity ranker.
	List(ctx context.Context) ([]domain.Address, error)
	Page(ctx context.Context, offset, limit int) ([]domain.Address, error)
	Count(ctx context.Context) (int, error)
	WithinBounds(ctx context.Context, b domain.Bounds) ([]domain.Address, error)
	GetByID(ctx context.Context, id string) (*domain.Address, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error)
	Create(ctx context.Context, a *domain.Address) error
	Update(ctx context.Context, a *domain.Address) error
	Delete(ctx context.Context, id string) error
	UpsertBatch(ctx context.Context, addrs []domain.Address) error
}
