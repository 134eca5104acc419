package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// TaskQueue is the default queue the draw worker polls.
const TaskQueue = "nextdest-draws"

// Non-retryable error types.
const (
	ErrTypeNoCandidates  = "NoCandidates"
	ErrTypeConfiguration = "Configuration"
)

// DrawInput is the input for the draw workflow.
type DrawInput struct {
	Origin domain.GeoPoint
}

// DrawWorkflow loads the candidates, draws one destination from the origin
// and announces it. A failed announcement is logged and does not fail the
// draw.
func DrawWorkflow(ctx workflow.Context, input DrawInput) (*domain.Selection, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting draw workflow", "lat", input.Origin.Lat, "lon", input.Origin.Lon)

	if !input.Origin.Valid() {
		return nil, temporal.NewNonRetryableApplicationError("invalid origin", ErrTypeConfiguration, nil)
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeNoCandidates, ErrTypeConfiguration},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var candidates []domain.Point
	if err := workflow.ExecuteActivity(ctx, "LoadCandidates").Get(ctx, &candidates); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, temporal.NewNonRetryableApplicationError(domain.ErrEmptyCandidateSet.Error(), ErrTypeNoCandidates, nil)
	}

	var sel domain.Selection
	if err := workflow.ExecuteActivity(ctx, "DrawDestination", input.Origin, candidates).Get(ctx, &sel); err != nil {
		return nil, err
	}
	sel.SelectedAt = workflow.Now(ctx).UTC()

	if err := workflow.ExecuteActivity(ctx, "AnnounceSelection", &sel).Get(ctx, nil); err != nil {
		logger.Warn("announce failed", "error", err)
	}

	logger.Info("Destination drawn", "point", sel.Point.Name)
	return &sel, nil
}
