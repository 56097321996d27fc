package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// --- Mock AddressRepository ---

type mockAddressRepo struct {
	listFn         func(ctx context.Context) ([]domain.Address, error)
	pageFn         func(ctx context.Context, offset, limit int) ([]domain.Address, error)
	countFn        func(ctx context.Context) (int, error)
	withinBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Address, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Address, error)
	getByIDsFn     func(ctx context.Context, ids []string) ([]domain.Address, error)
	createFn       func(ctx context.Context, a *domain.Address) error
	updateFn       func(ctx context.Context, a *domain.Address) error
	deleteFn       func(ctx context.Context, id string) error
	upsertBatchFn  func(ctx context.Context, addrs []domain.Address) error

	listCalls int
}

func (m *mockAddressRepo) List(ctx context.Context) ([]domain.Address, error) {
	m.listCalls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockAddressRepo) Page(ctx context.Context, offset, limit int) ([]domain.Address, error) {
	if m.pageFn != nil {
		return m.pageFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockAddressRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockAddressRepo) WithinBounds(ctx context.Context, b domain.Bounds) ([]domain.Address, error) {
	if m.withinBoundsFn != nil {
		return m.withinBoundsFn(ctx, b)
	}
	return nil, nil
}

func (m *mockAddressRepo) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAddressRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockAddressRepo) Create(ctx context.Context, a *domain.Address) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}

func (m *mockAddressRepo) Update(ctx context.Context, a *domain.Address) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}

func (m *mockAddressRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAddressRepo) UpsertBatch(ctx context.Context, addrs []domain.Address) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, addrs)
	}
	return nil
}

// catalogRepo serves a fixed catalog through the mock.
func catalogRepo(addrs ...domain.Address) *mockAddressRepo {
	return &mockAddressRepo{
		listFn: func(ctx context.Context) ([]domain.Address, error) { return addrs, nil },
		getByIDsFn: func(ctx context.Context, ids []string) ([]domain.Address, error) {
			want := make(map[string]bool, len(ids))
			for _, id := range ids {
				want[id] = true
			}
			var out []domain.Address
			// reverse order, so callers cannot rely on repository ordering
			for i := len(addrs) - 1; i >= 0; i-- {
				if want[addrs[i].ID] {
					out = append(out, addrs[i])
				}
			}
			return out, nil
		},
	}
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	addressEvents []*domain.AddressEvent
	routeEvents   []*domain.RouteEvent
	err           error
}

func (m *mockPublisher) PublishAddressEvent(ctx context.Context, ev *domain.AddressEvent) error {
	m.addressEvents = append(m.addressEvents, ev)
	return m.err
}

func (m *mockPublisher) PublishRouteEvent(ctx context.Context, ev *domain.RouteEvent) error {
	m.routeEvents = append(m.routeEvents, ev)
	return m.err
}
