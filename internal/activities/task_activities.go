package activities

import (
	"context"

	"github.com/DFCPagro/DFCP-sub001/internal/application"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
)

// GenerateShiftTasksInput is the activity input for one generation run
type GenerateShiftTasksInput struct {
	WorkCenter  string `json:"workCenter"`
	Shift       string `json:"shift,omitempty"`
	ShiftDate   string `json:"shiftDate,omitempty"`
	Actor       string `json:"actor"`
	AutoRelease bool   `json:"autoRelease"`
}

// TaskActivities exposes fulfilment use cases to Temporal workers
type TaskActivities struct {
	service *application.FulfillmentService
	logger  *logging.Logger
}

// NewTaskActivities creates a new TaskActivities
func NewTaskActivities(service *application.FulfillmentService, logger *logging.Logger) *TaskActivities {
	return &TaskActivities{service: service, logger: logger}
}

// GenerateShiftTasks runs the idempotent task generator for a shift scope.
// Safe to retry: re-runs only fill gaps.
func (a *TaskActivities) GenerateShiftTasks(ctx context.Context, input GenerateShiftTasksInput) (*application.GenerationResultDTO, error) {
	result, err := a.service.GenerateTasksForShift(ctx, application.GenerateTasksCommand{
		WorkCenter:  input.WorkCenter,
		Shift:       input.Shift,
		ShiftDate:   input.ShiftDate,
		Actor:       input.Actor,
		AutoRelease: input.AutoRelease,
	})
	if err != nil {
		a.logger.WithError(err).Error("Shift task generation failed", "workCenter", input.WorkCenter)
		return nil, err
	}

	a.logger.Info("Shift task generation finished",
		"workCenter", result.WorkCenter,
		"shift", result.Shift,
		"shiftDate", result.ShiftDate,
		"created", result.Created,
		"skipped", result.Skipped,
		"empty", result.Empty,
		"failed", result.Failed,
	)
	return result, nil
}
