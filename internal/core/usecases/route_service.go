package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/ports"
	"github.com/waypoint-labs/waypoint/internal/core/routing"
	"github.com/waypoint-labs/waypoint/internal/pkg/metrics"
	"github.com/waypoint-labs/waypoint/internal/pkg/telemetry"
)

// Catalog is the read side of the address catalog used for routing.
// AddressService implements it.
type Catalog interface {
	List(ctx context.Context) ([]domain.Address, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Address, error)
}

// RouteOptions tunes RouteService.
type RouteOptions struct {
	AverageSpeedKmh float64
	MaxStops        int
	DefaultStops    int
	MaxPasses       int
	TimeBudget      time.Duration
}

// DefaultRouteOptions matches the service configuration defaults.
func DefaultRouteOptions() RouteOptions {
	return RouteOptions{
		AverageSpeedKmh: routing.DefaultAverageSpeedKmh,
		MaxStops:        20,
		DefaultStops:    5,
		TimeBudget:      250 * time.Millisecond,
	}
}

// RouteService ranks catalog addresses and sequences them into routes.
type RouteService struct {
	catalog   Catalog
	publisher ports.EventPublisher
	model     routing.CostModel
	seq       *routing.Sequencer
	opts      RouteOptions
}

// NewRouteService creates a new RouteService. publisher may be nil.
func NewRouteService(catalog Catalog, publisher ports.EventPublisher, opts RouteOptions) *RouteService {
	def := DefaultRouteOptions()
	if opts.MaxStops <= 0 {
		opts.MaxStops = def.MaxStops
	}
	if opts.DefaultStops <= 0 || opts.DefaultStops > opts.MaxStops {
		opts.DefaultStops = min(def.DefaultStops, opts.MaxStops)
	}

	model := routing.NewHaversineModel(opts.AverageSpeedKmh)
	return &RouteService{
		catalog:   catalog,
		publisher: publisher,
		model:     model,
		seq: routing.NewSequencer(
			routing.WithCostModel(model),
			routing.WithMaxPasses(opts.MaxPasses),
			routing.WithTimeBudget(opts.TimeBudget),
		),
		opts: opts,
	}
}

// DefaultStops is the stop count used when a request does not give one.
func (s *RouteService) DefaultStops() int { return s.opts.DefaultStops }

// MaxStops is the largest stop set accepted per route.
func (s *RouteService) MaxStops() int { return s.opts.MaxStops }

// Nearest returns up to limit catalog addresses closest to origin.
// limit above MaxStops is clamped.
func (s *RouteService) Nearest(ctx context.Context, origin domain.GeoPoint, limit int) ([]domain.RankedAddress, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if limit > s.opts.MaxStops {
		limit = s.opts.MaxStops
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearest,
		trace.WithAttributes(attribute.Int("routing.limit", limit)))
	defer span.End()

	catalog, err := s.catalog.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	ranked, err := routing.FindNearestWith(s.model, origin, catalog, limit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.NearestQueries.Inc()
	return ranked, nil
}

// Optimize resolves addressIDs and orders them into a route from origin.
func (s *RouteService) Optimize(ctx context.Context, origin domain.GeoPoint, addressIDs []string) (*domain.Route, error) {
	if len(addressIDs) > s.opts.MaxStops {
		return nil, fmt.Errorf("%w: at most %d stops per route, got %d", domain.ErrInvalidArgument, s.opts.MaxStops, len(addressIDs))
	}
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}

	stops, err := s.catalog.GetByIDs(ctx, addressIDs)
	if err != nil {
		return nil, err
	}
	route, err := s.Sequence(ctx, origin, stops)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, route)
	return route, nil
}

// Sequence orders an already resolved stop set. It does not publish.
func (s *RouteService) Sequence(ctx context.Context, origin domain.GeoPoint, stops []domain.Address) (*domain.Route, error) {
	if len(stops) > s.opts.MaxStops {
		return nil, fmt.Errorf("%w: at most %d stops per route, got %d", domain.ErrInvalidArgument, s.opts.MaxStops, len(stops))
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanOptimize,
		trace.WithAttributes(attribute.Int("routing.stops", len(stops))))
	defer span.End()

	start := time.Now()
	route, err := s.seq.Sequence(ctx, origin, stops)
	if err != nil {
		metrics.Optimizations.WithLabelValues("error").Inc()
		span.RecordError(err)
		return nil, err
	}
	elapsed := time.Since(start)

	metrics.ObserveRoute(len(stops), route.InitialDistance, route.TotalDistance, route.BudgetExhausted, elapsed)
	span.SetAttributes(
		attribute.Float64("routing.total_distance_m", route.TotalDistance),
		attribute.Int("routing.passes", route.Passes),
		attribute.Bool("routing.budget_exhausted", route.BudgetExhausted),
	)
	if route.BudgetExhausted {
		slog.InfoContext(ctx, "route improvement stopped by budget",
			"stops", len(stops), "passes", route.Passes, "elapsed", elapsed)
	}
	return route, nil
}

// Plan ranks the catalog around origin and sequences the limit nearest
// addresses in one call.
func (s *RouteService) Plan(ctx context.Context, origin domain.GeoPoint, limit int) (*domain.Route, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPlan)
	defer span.End()

	ranked, err := s.Nearest(ctx, origin, limit)
	if err != nil {
		return nil, err
	}
	stops := make([]domain.Address, len(ranked))
	for i, r := range ranked {
		stops[i] = r.Address
	}
	route, err := s.Sequence(ctx, origin, stops)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, route)
	return route, nil
}

// PublishRoute announces a computed route. Routes are never persisted.
func (s *RouteService) PublishRoute(ctx context.Context, route *domain.Route) error {
	if s.publisher == nil || len(route.Legs) == 0 {
		return nil
	}
	return s.publisher.PublishRouteEvent(ctx, &domain.RouteEvent{
		Origin:        route.Origin,
		AddressIDs:    route.AddressIDs(),
		TotalDistance: route.TotalDistance,
		TotalDuration: route.TotalDuration,
		Time:          time.Now().UTC(),
	})
}

func (s *RouteService) publish(ctx context.Context, route *domain.Route) {
	if err := s.PublishRoute(ctx, route); err != nil {
		slog.WarnContext(ctx, "publish route event failed", "error", err)
	}
}
