package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/pkg/geospatial"
	"github.com/waypoint-labs/waypoint/internal/pkg/metrics"
	"github.com/waypoint-labs/waypoint/internal/pkg/telemetry"
)

const (
	cacheKeyAllAddresses = "addresses:all"
	cacheKeyAddressByID  = "addresses:id:"

	catalogTTL = 60  // seconds
	addressTTL = 600 // seconds

	// DefaultCountry is applied to addresses created without one.
	DefaultCountry = "USA"

	// MaxPageSize bounds Page requests.
	MaxPageSize = 100
)

// AddressService handles catalog business logic.
type AddressService struct {
	addresses ports.AddressRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewAddressService creates a new AddressService. cache and publisher may be nil.
func NewAddressService(addresses ports.AddressRepository, cache ports.CacheService, publisher ports.EventPublisher) *AddressService {
	return &AddressService{addresses: addresses, cache: cache, publisher: publisher}
}

// List returns the full catalog ordered by name.
func (s *AddressService) List(ctx context.Context) ([]domain.Address, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCatalogLoad)
	defer span.End()

	var cached []domain.Address
	if s.cacheGet(ctx, cacheKeyAllAddresses, "catalog", &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true), attribute.Int("catalog.size", len(cached)))
		return cached, nil
	}

	addrs, err := s.addresses.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Int("catalog.size", len(addrs)))

	s.cacheSet(ctx, cacheKeyAllAddresses, addrs, catalogTTL)
	return addrs, nil
}

// Page returns one page of the catalog plus the total catalog size.
func (s *AddressService) Page(ctx context.Context, offset, limit int) ([]domain.Address, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := s.addresses.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count addresses: %w", err)
	}
	items, err := s.addresses.Page(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("page addresses: %w", err)
	}
	return items, total, nil
}

// WithinBounds returns addresses inside b, used for map viewports.
func (s *AddressService) WithinBounds(ctx context.Context, b domain.Bounds) ([]domain.Address, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return s.addresses.WithinBounds(ctx, b)
}

// WithinRadius returns addresses at most radius meters from center, ordered
// by name. The bounding box prefilter runs in the repository, split in two
// when the circle crosses the antimeridian.
func (s *AddressService) WithinRadius(ctx context.Context, center domain.GeoPoint, radius float64) ([]domain.Address, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: radius must be a positive number of meters", domain.ErrInvalidArgument)
	}

	seen := map[string]bool{}
	out := []domain.Address{}
	for _, box := range geospatial.RadiusBoxes(center.Lat, center.Lon, radius) {
		candidates, err := s.addresses.WithinBounds(ctx, domain.Bounds{
			MinLat: box.MinLat, MinLon: box.MinLon, MaxLat: box.MaxLat, MaxLon: box.MaxLon,
		})
		if err != nil {
			return nil, err
		}
		for _, a := range candidates {
			if seen[a.ID] {
				continue
			}
			if geospatial.Haversine(center.Lat, center.Lon, a.Latitude, a.Longitude) <= radius {
				seen[a.ID] = true
				out = append(out, a)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByID returns a single address.
func (s *AddressService) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: address id is required", domain.ErrInvalidArgument)
	}

	var cached domain.Address
	if s.cacheGet(ctx, cacheKeyAddressByID+id, "address", &cached) {
		return &cached, nil
	}

	a, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyAddressByID+id, a, addressTTL)
	return a, nil
}

// GetByIDs returns the addresses in the order requested. Repeated IDs yield
// repeated entries. Any unknown ID fails the whole call with ErrNotFound.
func (s *AddressService) GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error) {
	if len(ids) == 0 {
		return []domain.Address{}, nil
	}

	found, err := s.addresses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get addresses: %w", err)
	}
	byID := make(map[string]domain.Address, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	out := make([]domain.Address, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: address %s", domain.ErrNotFound, id)
		}
		out = append(out, a)
	}
	return out, nil
}

// Create validates and stores a new address.
func (s *AddressService) Create(ctx context.Context, a *domain.Address) error {
	normalize(a)
	if err := a.Validate(); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCatalogWrite)
	defer span.End()

	if err := s.addresses.Create(ctx, a); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create address: %w", err)
	}

	s.afterWrite(ctx, domain.AddressCreated, a.ID, a)
	return nil
}

// Update replaces an existing address.
func (s *AddressService) Update(ctx context.Context, a *domain.Address) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: address id is required", domain.ErrInvalidArgument)
	}
	normalize(a)
	if err := a.Validate(); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCatalogWrite)
	defer span.End()

	if err := s.addresses.Update(ctx, a); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update address: %w", err)
	}

	s.afterWrite(ctx, domain.AddressUpdated, a.ID, a)
	return nil
}

// Delete removes an address.
func (s *AddressService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: address id is required", domain.ErrInvalidArgument)
	}
	if err := s.addresses.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	s.afterWrite(ctx, domain.AddressDeleted, id, nil)
	return nil
}

// Import bulk-loads addresses, assigning defaults and validating each entry.
func (s *AddressService) Import(ctx context.Context, addrs []domain.Address) error {
	for i := range addrs {
		normalize(&addrs[i])
		if err := addrs[i].Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := s.addresses.UpsertBatch(ctx, addrs); err != nil {
		return fmt.Errorf("import addresses: %w", err)
	}
	s.InvalidateCache(ctx)
	return nil
}

// InvalidateCache drops the cached catalog snapshot, plus the single-address
// entries for ids.
func (s *AddressService) InvalidateCache(ctx context.Context, ids ...string) {
	if s.cache == nil {
		return
	}
	keys := append([]string{cacheKeyAllAddresses}, prefixed(cacheKeyAddressByID, ids)...)
	for _, k := range keys {
		if err := s.cache.Delete(ctx, k); err != nil {
			slog.WarnContext(ctx, "cache invalidation failed", "key", k, "error", err)
		}
	}
}

func (s *AddressService) afterWrite(ctx context.Context, typ domain.AddressEventType, id string, a *domain.Address) {
	s.InvalidateCache(ctx, id)
	metrics.CatalogEvents.WithLabelValues(string(typ)).Inc()

	if s.publisher == nil {
		return
	}
	ev := &domain.AddressEvent{Type: typ, AddressID: id, Address: a, Time: time.Now().UTC()}
	if err := s.publisher.PublishAddressEvent(ctx, ev); err != nil {
		slog.WarnContext(ctx, "publish address event failed", "type", typ, "address_id", id, "error", err)
	}
}

func (s *AddressService) cacheGet(ctx context.Context, key, op string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil || json.Unmarshal(data, dst) != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *AddressService) cacheSet(ctx context.Context, key string, v any, ttl int) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		slog.DebugContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func normalize(a *domain.Address) {
	a.Name = strings.TrimSpace(a.Name)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	if strings.TrimSpace(a.Country) == "" {
		a.Country = DefaultCountry
	}
}

func prefixed(prefix string, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, prefix+id)
		}
	}
	return out
}
