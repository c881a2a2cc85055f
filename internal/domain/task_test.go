package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

func testPlan() packing.Plan {
	return packing.Plan{
		Boxes: []packing.Box{
			{
				Number:       1,
				ContainerKey: "medium",
				UsableLiters: 20,
				MaxWeightKg:  10,
				FillLiters:   8.1,
				WeightKg:     6,
				Pieces: []packing.Piece{
					{ItemID: "carrot-1", Kind: packing.PieceBag, Mode: packing.ModeKg, QuantityKg: 3, EstLiters: 3.95, EstWeightKg: 3, Fragility: packing.Sturdy, MixAllowed: true},
					{ItemID: "carrot-1", Kind: packing.PieceBag, Mode: packing.ModeKg, QuantityKg: 3, EstLiters: 3.95, EstWeightKg: 3, Fragility: packing.Sturdy, MixAllowed: true},
					{ItemID: "eggs-1", Kind: packing.PieceBundle, Mode: packing.ModeUnit, Units: 12, EstLiters: 2.2, EstWeightKg: 0.72, Fragility: packing.VeryFragile, MixAllowed: true},
				},
			},
		},
		Summary: packing.Summary{BoxCount: 1},
	}
}

func setupTask(t *testing.T) *FulfillmentTask {
	t.Helper()
	task, err := NewFulfillmentTask("wc-1", "morning", "2026-08-31", "order-1", testPlan(), 5, "system")
	require.NoError(t, err)
	return task
}

func TestNewFulfillmentTask(t *testing.T) {
	task := setupTask(t)

	assert.NotEmpty(t, task.ID)
	assert.Regexp(t, `^FT-[a-f0-9]{8}$`, task.TaskID)
	assert.Equal(t, TaskStatusOpen, task.Status)
	assert.Empty(t, task.AssignedPicker)
	assert.Len(t, task.Audit, 1)
	assert.Equal(t, "created", task.Audit[0].Action)
	assert.Len(t, task.DomainEvents, 1)
}

func TestNewFulfillmentTask_Validation(t *testing.T) {
	tests := []struct {
		name        string
		workCenter  string
		shift       string
		shiftDate   string
		orderID     string
		plan        packing.Plan
		expectedErr error
	}{
		{"missing work center", "", "morning", "2026-08-31", "o1", testPlan(), ErrMissingWorkCenter},
		{"missing shift", "wc-1", "", "2026-08-31", "o1", testPlan(), ErrMissingShift},
		{"missing shift date", "wc-1", "morning", "", "o1", testPlan(), ErrMissingShiftDate},
		{"missing order id", "wc-1", "morning", "2026-08-31", "", testPlan(), ErrMissingOrderID},
		{"empty plan", "wc-1", "morning", "2026-08-31", "o1", packing.Plan{}, ErrEmptyPlan},
		{"plan with empty boxes", "wc-1", "morning", "2026-08-31", "o1", packing.Plan{Boxes: []packing.Box{{Number: 1}}}, ErrEmptyPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFulfillmentTask(tt.workCenter, tt.shift, tt.shiftDate, tt.orderID, tt.plan, 0, "system")
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRecomputeTotals(t *testing.T) {
	task := setupTask(t)

	assert.InDelta(t, 6.72, task.TotalEstKg, 1e-9)
	assert.InDelta(t, 10.1, task.TotalLiters, 1e-9)
	assert.Equal(t, 12, task.TotalEstUnits)

	// Totals follow the plan, not the stored values
	task.TotalEstKg = 999
	task.RecomputeTotals()
	assert.InDelta(t, 6.72, task.TotalEstKg, 1e-9)
}

func TestRelease(t *testing.T) {
	task := setupTask(t)

	require.NoError(t, task.Release("ops-1"))
	assert.Equal(t, TaskStatusReady, task.Status)

	err := task.Release("ops-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestClaim(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))

	require.NoError(t, task.Claim("picker-1"))
	assert.Equal(t, TaskStatusClaimed, task.Status)
	assert.Equal(t, "picker-1", task.AssignedPicker)
	assert.NotNil(t, task.Progress.StartedAt)
}

func TestClaim_Guards(t *testing.T) {
	task := setupTask(t)

	// open tasks are not claimable
	assert.ErrorIs(t, task.Claim("picker-1"), ErrInvalidTransition)

	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))

	// double claim fails
	assert.ErrorIs(t, task.Claim("picker-2"), ErrInvalidTransition)
}

func TestReleaseClaim(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))

	require.NoError(t, task.ReleaseClaim("picker-1", "shift ended"))
	assert.Equal(t, TaskStatusReady, task.Status)
	assert.Empty(t, task.AssignedPicker)
	assert.Nil(t, task.Progress.StartedAt)
}

func TestFullLifecycle(t *testing.T) {
	task := setupTask(t)

	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))
	require.NoError(t, task.Start("picker-1"))
	assert.Equal(t, TaskStatusInProgress, task.Status)

	require.NoError(t, task.UpdateProgress("picker-1", 2, map[string]float64{"carrot-1": 6}))
	assert.Equal(t, 2, task.Progress.CurrentIndex)
	assert.Equal(t, 6.0, task.Progress.Placed["carrot-1"])

	require.NoError(t, task.Complete("picker-1"))
	assert.Equal(t, TaskStatusDone, task.Status)
	assert.NotNil(t, task.Progress.FinishedAt)
	assert.Equal(t, "picker-1", task.AssignedPicker, "assignee survives completion")
}

func TestAssigneeGuards(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))

	assert.ErrorIs(t, task.Start("picker-2"), ErrWrongPicker)
	require.NoError(t, task.Start("picker-1"))
	assert.ErrorIs(t, task.UpdateProgress("picker-2", 1, nil), ErrWrongPicker)
	assert.ErrorIs(t, task.Complete("picker-2"), ErrWrongPicker)
}

func TestProblemAndCancel(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.ReportProblem("picker-1", "crushed box"))
	assert.Equal(t, TaskStatusProblem, task.Status)
	assert.Empty(t, task.AssignedPicker)

	// problem is not terminal
	require.NoError(t, task.Cancel("ops-1", "order withdrawn"))
	assert.Equal(t, TaskStatusCancelled, task.Status)
	assert.Empty(t, task.AssignedPicker)

	// terminal states reject everything
	assert.ErrorIs(t, task.ReportProblem("ops-1", ""), ErrTaskTerminal)
	assert.ErrorIs(t, task.Cancel("ops-1", ""), ErrTaskTerminal)
}

func TestReportProblem_DropsAssignment(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))

	require.NoError(t, task.ReportProblem("picker-1", "crushed box"))
	assert.Equal(t, TaskStatusProblem, task.Status)
	assert.Empty(t, task.AssignedPicker)
	assert.Nil(t, task.Progress.StartedAt)

	// flagging mid-pick drops the assignment too
	task = setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))
	require.NoError(t, task.Start("picker-1"))
	require.NoError(t, task.ReportProblem("picker-1", "item missing"))
	assert.Empty(t, task.AssignedPicker)
}

func TestNoBackwardFromDone(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))
	require.NoError(t, task.Complete("picker-1"))

	assert.ErrorIs(t, task.Release("ops-1"), ErrInvalidTransition)
	assert.ErrorIs(t, task.Start("picker-1"), ErrInvalidTransition)
	assert.ErrorIs(t, task.Cancel("ops-1", ""), ErrTaskTerminal)
}

func TestAuditTrailGrows(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	require.NoError(t, task.Claim("picker-1"))
	require.NoError(t, task.Start("picker-1"))
	require.NoError(t, task.Complete("picker-1"))

	require.Len(t, task.Audit, 5)
	actions := make([]string, 0, len(task.Audit))
	for _, entry := range task.Audit {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []string{"created", "released", "claimed", "started", "completed"}, actions)
}

func TestClearEvents(t *testing.T) {
	task := setupTask(t)
	require.NoError(t, task.Release("ops-1"))
	assert.Len(t, task.DomainEvents, 2)

	task.ClearEvents()
	assert.Empty(t, task.DomainEvents)
}
