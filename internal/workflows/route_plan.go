package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/waypoint-labs/waypoint/internal/core/domain"
)

// PlanInput is the input for the route plan workflow.
type PlanInput struct {
	Lat   float64
	Lon   float64
	Limit int
}

// RoutePlanWorkflow picks the addresses nearest to the input point, sequences
// them into a route and publishes it. A failed publish is logged and does not
// fail the plan.
func RoutePlanWorkflow(ctx workflow.Context, input PlanInput) (*domain.Route, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route plan workflow", "lat", input.Lat, "lon", input.Lon, "limit", input.Limit)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{errTypeInvalidArgument},
		},
	})

	// Step 1: nearest addresses
	var stops []domain.Address
	if err := workflow.ExecuteActivity(ctx, ActivityFindNearestStops, input.Lat, input.Lon, input.Limit).Get(ctx, &stops); err != nil {
		return nil, err
	}

	// Step 2: sequence them
	origin := domain.GeoPoint{Lat: input.Lat, Lon: input.Lon}
	var route domain.Route
	if err := workflow.ExecuteActivity(ctx, ActivityOptimizeStops, origin, stops).Get(ctx, &route); err != nil {
		return nil, err
	}

	// Step 3: publish, one attempt only
	pubCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(pubCtx, ActivityPublishRoute, &route).Get(pubCtx, nil); err != nil {
		logger.Warn("route publish failed", "error", err)
	}

	logger.Info("Route planned", "stops", len(route.Legs), "total_distance", route.TotalDistance)
	return &route, nil
}
