package application

import (
	"github.com/DFCPagro/DFCP-sub001/internal/domain"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// GenerateTasksCommand generates fulfilment tasks for a shift scope. When
// Shift and ShiftDate are empty the work center's currently active shift is
// resolved.
type GenerateTasksCommand struct {
	WorkCenter string
	Shift      string
	ShiftDate  string
	Actor      string

	// AutoRelease moves freshly created (and previously stuck open) tasks
	// straight to ready
	AutoRelease bool
}

// ClaimTaskCommand claims the best available task for a picker
type ClaimTaskCommand struct {
	WorkCenter string
	Shift      string
	ShiftDate  string
	PickerID   string
}

// ReleaseTaskCommand makes a single open task claimable
type ReleaseTaskCommand struct {
	TaskID string
	Actor  string
}

// ReleaseClaimCommand returns a claimed task to the ready pool
type ReleaseClaimCommand struct {
	TaskID string
	Actor  string
	Note   string
}

// StartTaskCommand moves a claimed task into active picking
type StartTaskCommand struct {
	TaskID   string
	PickerID string
}

// UpdateProgressCommand records placed quantities for the assigned picker
type UpdateProgressCommand struct {
	TaskID       string
	PickerID     string
	CurrentIndex int
	Placed       map[string]float64
}

// CompleteTaskCommand finishes a task
type CompleteTaskCommand struct {
	TaskID   string
	PickerID string
}

// ReportProblemCommand flags a task for operator attention
type ReportProblemCommand struct {
	TaskID string
	Actor  string
	Note   string
}

// CancelTaskCommand removes a task from the work pool
type CancelTaskCommand struct {
	TaskID string
	Actor  string
	Note   string
}

// PreviewPlanCommand computes a packing plan without persisting anything
type PreviewPlanCommand struct {
	Lines []packing.OrderLine
}

// GetTaskQuery retrieves a task by its public id
type GetTaskQuery struct {
	TaskID string
}

// ListTasksQuery lists tasks within a scope
type ListTasksQuery struct {
	WorkCenter     string
	Shift          string
	ShiftDate      string
	Status         string
	AssignedPicker string
	Page           int64
	PageSize       int64
}

func (q ListTasksQuery) scope() domain.Scope {
	return domain.Scope{WorkCenter: q.WorkCenter, Shift: q.Shift, ShiftDate: q.ShiftDate}
}
