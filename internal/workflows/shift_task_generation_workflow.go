package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/DFCPagro/DFCP-sub001/internal/application"
)

// ShiftTaskGenerationInput starts one generation run for a shift scope. When
// Shift and ShiftDate are empty the worker resolves the currently active
// shift, which is what the scheduled cron run relies on.
type ShiftTaskGenerationInput struct {
	WorkCenter  string `json:"workCenter"`
	Shift       string `json:"shift,omitempty"`
	ShiftDate   string `json:"shiftDate,omitempty"`
	Actor       string `json:"actor"`
	AutoRelease bool   `json:"autoRelease"`
}

// ShiftTaskGenerationWorkflow generates fulfilment tasks for one work center
// shift. The underlying activity is idempotent, so the aggressive retry
// policy cannot duplicate tasks.
func ShiftTaskGenerationWorkflow(ctx workflow.Context, input ShiftTaskGenerationInput) (*application.GenerationResultDTO, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting shift task generation", "workCenter", input.WorkCenter, "shift", input.Shift)

	if input.WorkCenter == "" {
		return nil, temporal.NewNonRetryableApplicationError("workCenter is required", "validation", nil)
	}
	if input.Actor == "" {
		input.Actor = "scheduler"
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result application.GenerationResultDTO
	err := workflow.ExecuteActivity(ctx, "GenerateShiftTasks", input).Get(ctx, &result)
	if err != nil {
		return nil, fmt.Errorf("shift task generation failed for %s: %w", input.WorkCenter, err)
	}

	logger.Info("Shift task generation completed",
		"workCenter", result.WorkCenter,
		"shift", result.Shift,
		"shiftDate", result.ShiftDate,
		"ordersSeen", result.OrdersSeen,
		"created", result.Created,
		"skipped", result.Skipped,
		"released", result.Released,
	)
	return &result, nil
}
