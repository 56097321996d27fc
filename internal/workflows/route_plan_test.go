package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/waypoint-labs/waypoint/internal/adapters/memory"
	"github.com/waypoint-labs/waypoint/internal/core/domain"
	"github.com/waypoint-labs/waypoint/internal/core/usecases"
	"github.com/waypoint-labs/waypoint/internal/workflows"
)

func newActivities() *workflows.Activities {
	repo := memory.NewAddressRepo([]domain.Address{
		{ID: "c", Name: "C", Latitude: 0, Longitude: 0.03},
		{ID: "a", Name: "A", Latitude: 0, Longitude: 0.01},
		{ID: "b", Name: "B", Latitude: 0, Longitude: 0.02},
		{ID: "z", Name: "Z", Latitude: 10, Longitude: 10},
	})
	addresses := usecases.NewAddressService(repo, nil, nil)
	return &workflows.Activities{
		Routes: usecases.NewRouteService(addresses, nil, usecases.DefaultRouteOptions()),
	}
}

func TestRoutePlanWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.RoutePlanWorkflow)
	env.RegisterActivity(newActivities())

	env.ExecuteWorkflow(workflows.RoutePlanWorkflow, workflows.PlanInput{Lat: 0, Lon: 0, Limit: 3})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var route domain.Route
	require.NoError(t, env.GetWorkflowResult(&route))
	assert.Equal(t, []string{"a", "b", "c"}, route.AddressIDs())
	assert.InDelta(t, 3335.85, route.TotalDistance, 2)
}

func TestRoutePlanWorkflow_PublishFailureIsIgnored(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.RoutePlanWorkflow)
	env.RegisterActivity(newActivities())
	env.OnActivity(workflows.ActivityPublishRoute, mock.Anything, mock.Anything).
		Return(errors.New("nats down")).Once()

	env.ExecuteWorkflow(workflows.RoutePlanWorkflow, workflows.PlanInput{Lat: 0, Lon: 0, Limit: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}

func TestRoutePlanWorkflow_InvalidInputNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.RoutePlanWorkflow)
	env.RegisterActivity(newActivities())

	calls := 0
	env.SetOnActivityStartedListener(func(info *activity.Info, ctx context.Context, args converter.EncodedValues) {
		calls++
	})

	env.ExecuteWorkflow(workflows.RoutePlanWorkflow, workflows.PlanInput{Lat: 95, Lon: 0, Limit: 2})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, 1, calls)
}
