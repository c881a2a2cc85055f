package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/DFCPagro/DFCP-sub001/internal/activities"
	"github.com/DFCPagro/DFCP-sub001/internal/application"
)

func TestShiftTaskGenerationWorkflow_Success(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterActivity((&activities.TaskActivities{}).GenerateShiftTasks)

	env.OnActivity("GenerateShiftTasks", mock.Anything, mock.Anything).Return(&application.GenerationResultDTO{
		WorkCenter: "wc-1",
		Shift:      "morning",
		ShiftDate:  "2026-08-31",
		OrdersSeen: 12,
		Created:    10,
		Skipped:    2,
		Released:   10,
	}, nil)

	env.ExecuteWorkflow(ShiftTaskGenerationWorkflow, ShiftTaskGenerationInput{
		WorkCenter:  "wc-1",
		Actor:       "scheduler",
		AutoRelease: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result application.GenerationResultDTO
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, 10, result.Created)
	require.Equal(t, 2, result.Skipped)
	require.Equal(t, int64(10), result.Released)
}

func TestShiftTaskGenerationWorkflow_MissingWorkCenter(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	env.ExecuteWorkflow(ShiftTaskGenerationWorkflow, ShiftTaskGenerationInput{})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestShiftTaskGenerationWorkflow_ActivityFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterActivity((&activities.TaskActivities{}).GenerateShiftTasks)

	env.OnActivity("GenerateShiftTasks", mock.Anything, mock.Anything).
		Return(nil, errors.New("mongo unavailable"))

	env.ExecuteWorkflow(ShiftTaskGenerationWorkflow, ShiftTaskGenerationInput{
		WorkCenter: "wc-1",
	})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
