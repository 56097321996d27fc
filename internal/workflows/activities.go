package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
)

// Activity names, as registered from the Activities methods.
const (
	ActivityFindNearestStops = "FindNearestStops"
	ActivityOptimizeStops    = "OptimizeStops"
	ActivityPublishRoute     = "PublishRoute"
)

// errTypeInvalidArgument marks application errors that must not be retried.
const errTypeInvalidArgument = "InvalidArgument"

// Activities holds the activity implementations for the route plan workflow.
type Activities struct {
	Routes *usecases.RouteService
}

// nonRetryable stops Temporal from retrying caller mistakes.
func nonRetryable(err error) error {
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidArgument, err)
	}
	return err
}

// FindNearestStops returns up to limit catalog addresses nearest to (lat, lon).
func (a *Activities) FindNearestStops(ctx context.Context, lat, lon float64, limit int) ([]domain.Address, error) {
	ranked, err := a.Routes.Nearest(ctx, domain.GeoPoint{Lat: lat, Lon: lon}, limit)
	if err != nil {
		return nil, nonRetryable(fmt.Errorf("find nearest stops: %w", err))
	}
	stops := make([]domain.Address, len(ranked))
	for i, r := range ranked {
		stops[i] = r.Address
	}
	activity.GetLogger(ctx).Info("nearest stops found", "count", len(stops))
	return stops, nil
}

// OptimizeStops sequences stops into a route from origin.
func (a *Activities) OptimizeStops(ctx context.Context, origin domain.GeoPoint, stops []domain.Address) (*domain.Route, error) {
	route, err := a.Routes.Sequence(ctx, origin, stops)
	if err != nil {
		return nil, nonRetryable(fmt.Errorf("optimize stops: %w", err))
	}
	return route, nil
}

// PublishRoute announces a planned route on the event bus.
func (a *Activities) PublishRoute(ctx context.Context, route *domain.Route) error {
	if err := a.Routes.PublishRoute(ctx, route); err != nil {
		return fmt.Errorf("publish route: %w", err)
	}
	return nil
}
