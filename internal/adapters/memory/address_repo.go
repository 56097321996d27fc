// Package memory is an in-process address catalog indexed with an R-tree.
// It backs the CLI, the file catalog source and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/google/uuid"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

const (
	dimensions  = 2
	minChildren = 25
	maxChildren = 50

	// pointTolerance is the side length (degrees) of the rect stored per address.
	pointTolerance = 1e-9
)

// item adapts an address to rtreego.Spatial. Axis 0 is latitude, axis 1 longitude.
type item struct {
	id   string
	rect *rtreego.Rect
}

func (it *item) Bounds() *rtreego.Rect { return it.rect }

// AddressRepo implements ports.AddressRepository in memory.
type AddressRepo struct {
	mu     sync.RWMutex
	byID   map[string]domain.Address
	sorted []domain.Address
	tree   *rtreego.Rtree

	// onChange runs with the full catalog after every successful write,
	// under the write lock.
	onChange func([]domain.Address) error
	now      func() time.Time
}

// Option configures an AddressRepo.
type Option func(*AddressRepo)

// WithPersistence saves the catalog with fn after every write.
func WithPersistence(fn func([]domain.Address) error) Option {
	return func(r *AddressRepo) { r.onChange = fn }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *AddressRepo) { r.now = now }
}

// NewAddressRepo creates a repository seeded with addrs. Addresses without an
// ID get one.
func NewAddressRepo(addrs []domain.Address, opts ...Option) *AddressRepo {
	r, _ := newAddressRepo(addrs, opts...)
	return r
}

// newAddressRepo also reports how many IDs it assigned.
func newAddressRepo(addrs []domain.Address, opts ...Option) (*AddressRepo, int) {
	r := &AddressRepo{byID: make(map[string]domain.Address, len(addrs)), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	assigned := 0
	for _, a := range addrs {
		if a.ID == "" {
			a.ID = uuid.NewString()
			assigned++
		}
		r.byID[a.ID] = a
	}
	r.rebuild()
	return r, assigned
}

// rebuild recomputes the name-ordered snapshot and the spatial index.
// Callers hold the write lock.
func (r *AddressRepo) rebuild() {
	sorted := make([]domain.Address, 0, len(r.byID))
	for _, a := range r.byID {
		sorted = append(sorted, a)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, a := range sorted {
		tree.Insert(&item{
			id:   a.ID,
			rect: rtreego.Point{a.Latitude, a.Longitude}.ToRect(pointTolerance),
		})
	}

	r.sorted = sorted
	r.tree = tree
}

// commit publishes the current byID and persists it. When persisting fails
// the catalog reverts to prev. Callers hold the write lock.
func (r *AddressRepo) commit(prev map[string]domain.Address) error {
	r.rebuild()
	if r.onChange == nil {
		return nil
	}
	if err := r.onChange(r.snapshot()); err != nil {
		r.byID = prev
		r.rebuild()
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}

func (r *AddressRepo) snapshot() []domain.Address {
	out := make([]domain.Address, len(r.sorted))
	copy(out, r.sorted)
	return out
}

// List returns every address ordered by name.
func (r *AddressRepo) List(ctx context.Context) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(), nil
}

// Page returns a window of the name-ordered catalog.
func (r *AddressRepo) Page(ctx context.Context, offset, limit int) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= len(r.sorted) {
		return []domain.Address{}, nil
	}
	end := min(offset+limit, len(r.sorted))
	out := make([]domain.Address, end-offset)
	copy(out, r.sorted[offset:end])
	return out, nil
}

// Count returns the catalog size.
func (r *AddressRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sorted), nil
}

// WithinBounds returns addresses inside b (edges inclusive), ordered by name.
func (r *AddressRepo) WithinBounds(ctx context.Context, b domain.Bounds) ([]domain.Address, error) {
	// rtreego rejects zero-length sides, so degenerate boxes are padded and
	// the hits filtered exactly afterwards.
	lengths := []float64{
		max(b.MaxLat-b.MinLat, pointTolerance),
		max(b.MaxLon-b.MinLon, pointTolerance),
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.MinLat, b.MinLon}, lengths)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hits := r.tree.SearchIntersect(rect)
	out := make([]domain.Address, 0, len(hits))
	for _, h := range hits {
		a, ok := r.byID[h.(*item).id]
		if ok && b.Contains(a.Point()) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByID returns a single address.
func (r *AddressRepo) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

// GetByIDs returns the known addresses among ids. Unknown IDs are skipped.
func (r *AddressRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Address, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if a, ok := r.byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, a)
		}
	}
	return out, nil
}

// Create stores a and fills its ID and timestamps.
func (r *AddressRepo) Create(ctx context.Context, a *domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, exists := r.byID[a.ID]; exists {
		return fmt.Errorf("%w: address %s already exists", domain.ErrInvalidArgument, a.ID)
	}
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	prev := maps.Clone(r.byID)
	r.byID[a.ID] = *a
	return r.commit(prev)
}

// Update replaces an existing address, keeping its creation time.
func (r *AddressRepo) Update(ctx context.Context, a *domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = r.now().UTC()
	prev := maps.Clone(r.byID)
	r.byID[a.ID] = *a
	return r.commit(prev)
}

// Delete removes an address.
func (r *AddressRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	prev := maps.Clone(r.byID)
	delete(r.byID, id)
	return r.commit(prev)
}

// UpsertBatch inserts or replaces many addresses at once.
func (r *AddressRepo) UpsertBatch(ctx context.Context, addrs []domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	prev := maps.Clone(r.byID)
	for i := range addrs {
		a := &addrs[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if old, ok := r.byID[a.ID]; ok {
			a.CreatedAt = old.CreatedAt
		} else if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		r.byID[a.ID] = *a
	}
	return r.commit(prev)
}
