package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// TaskStatus represents the lifecycle state of a fulfilment task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusReady      TaskStatus = "ready"
	TaskStatusClaimed    TaskStatus = "claimed"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusProblem    TaskStatus = "problem"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}

// Domain errors
var (
	ErrEmptyPlan          = errors.New("packing plan has no filled boxes")
	ErrInvalidTransition  = errors.New("invalid task status transition")
	ErrTaskTerminal       = errors.New("task is in a terminal status")
	ErrNotAssigned        = errors.New("task has no assigned picker")
	ErrWrongPicker        = errors.New("task is assigned to a different picker")
	ErrMissingActor       = errors.New("actor id is required")
	ErrMissingOrderID     = errors.New("order id is required")
	ErrMissingWorkCenter  = errors.New("work center is required")
	ErrMissingShift       = errors.New("shift is required")
	ErrMissingShiftDate   = errors.New("shift date is required")
)

// AuditEntry is one append-only record of a task mutation
type AuditEntry struct {
	Action string    `bson:"action" json:"action"`
	Actor  string    `bson:"actor" json:"actor"`
	At     time.Time `bson:"at" json:"at"`
	Note   string    `bson:"note,omitempty" json:"note,omitempty"`
}

// Progress tracks the assigned picker's advancement through the plan
type Progress struct {
	CurrentIndex int                `bson:"currentIndex" json:"currentIndex"`
	Placed       map[string]float64 `bson:"placed,omitempty" json:"placed,omitempty"`
	StartedAt    *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt   *time.Time         `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}

// FulfillmentTask is the aggregate root for one order's packing work within a
// shift scope. Exactly one task exists per (workCenter, shift, shiftDate,
// orderId); the store enforces this with a unique index.
type FulfillmentTask struct {
	ID         string     `bson:"_id" json:"id"`
	TaskID     string     `bson:"taskId" json:"taskId"`
	WorkCenter string     `bson:"workCenter" json:"workCenter"`
	Shift      string     `bson:"shift" json:"shift"`
	ShiftDate  string     `bson:"shiftDate" json:"shiftDate"`
	OrderID    string     `bson:"orderId" json:"orderId"`

	Plan          packing.Plan `bson:"plan" json:"plan"`
	TotalEstKg    float64      `bson:"totalEstKg" json:"totalEstKg"`
	TotalLiters   float64      `bson:"totalLiters" json:"totalLiters"`
	TotalEstUnits int          `bson:"totalEstUnits" json:"totalEstUnits"`

	Status         TaskStatus `bson:"status" json:"status"`
	Priority       int        `bson:"priority" json:"priority"`
	AssignedPicker string     `bson:"assignedPicker,omitempty" json:"assignedPicker,omitempty"`

	Progress Progress     `bson:"progress" json:"progress"`
	Audit    []AuditEntry `bson:"audit" json:"audit"`
	Notes    string       `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Domain events raised by transitions, drained on save
	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewFulfillmentTask creates a task from a computed packing plan. Plans with
// no filled boxes do not produce a task.
func NewFulfillmentTask(workCenter, shift, shiftDate, orderID string, plan packing.Plan, priority int, actor string) (*FulfillmentTask, error) {
	if workCenter == "" {
		return nil, ErrMissingWorkCenter
	}
	if shift == "" {
		return nil, ErrMissingShift
	}
	if shiftDate == "" {
		return nil, ErrMissingShiftDate
	}
	if orderID == "" {
		return nil, ErrMissingOrderID
	}
	if !hasContents(plan) {
		return nil, ErrEmptyPlan
	}

	now := time.Now().UTC()
	task := &FulfillmentTask{
		ID:         uuid.New().String(),
		TaskID:     "FT-" + strings.Split(uuid.New().String(), "-")[0],
		WorkCenter: workCenter,
		Shift:      shift,
		ShiftDate:  shiftDate,
		OrderID:    orderID,
		Plan:       plan,
		Status:     TaskStatusOpen,
		Priority:   priority,
		Progress:   Progress{Placed: map[string]float64{}},
		Audit: []AuditEntry{
			{Action: "created", Actor: actor, At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	task.RecomputeTotals()

	task.addEvent(NewTaskCreatedEvent(task))
	return task, nil
}

func hasContents(plan packing.Plan) bool {
	for _, box := range plan.Boxes {
		if len(box.Pieces) > 0 {
			return true
		}
	}
	return false
}

// RecomputeTotals derives the rollup totals from the plan. Totals are a
// cache, never a source of truth, so every save path calls this first.
func (t *FulfillmentTask) RecomputeTotals() {
	var kg, liters float64
	units := 0
	for _, box := range t.Plan.Boxes {
		for _, piece := range box.Pieces {
			kg += piece.EstWeightKg
			liters += piece.EstLiters
			units += piece.Units
		}
	}
	t.TotalEstKg = kg
	t.TotalLiters = liters
	t.TotalEstUnits = units
}

// Release makes an open task claimable by pickers
func (t *FulfillmentTask) Release(actor string) error {
	if t.Status != TaskStatusOpen {
		return fmt.Errorf("%w: cannot release from %s", ErrInvalidTransition, t.Status)
	}
	t.transition(TaskStatusReady, actor, "released", "")
	t.addEvent(NewTaskReleasedEvent(t))
	return nil
}

// Claim assigns the task to a picker. The store performs the contended claim
// atomically; this method exists for the in-memory path and re-validation.
func (t *FulfillmentTask) Claim(pickerID string) error {
	if pickerID == "" {
		return ErrMissingActor
	}
	if t.Status != TaskStatusReady {
		return fmt.Errorf("%w: cannot claim from %s", ErrInvalidTransition, t.Status)
	}
	if t.AssignedPicker != "" {
		return fmt.Errorf("%w: already assigned to %s", ErrInvalidTransition, t.AssignedPicker)
	}

	now := time.Now().UTC()
	t.AssignedPicker = pickerID
	t.Progress.StartedAt = &now
	t.transition(TaskStatusClaimed, pickerID, "claimed", "")
	t.addEvent(NewTaskClaimedEvent(t))
	return nil
}

// ReleaseClaim returns a claimed task to the ready pool
func (t *FulfillmentTask) ReleaseClaim(actor, note string) error {
	if t.Status != TaskStatusClaimed {
		return fmt.Errorf("%w: cannot release claim from %s", ErrInvalidTransition, t.Status)
	}
	t.AssignedPicker = ""
	t.Progress.StartedAt = nil
	t.transition(TaskStatusReady, actor, "claim_released", note)
	t.addEvent(NewTaskReleasedEvent(t))
	return nil
}

// Start moves a claimed task into active picking
func (t *FulfillmentTask) Start(pickerID string) error {
	if t.Status != TaskStatusClaimed {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, t.Status)
	}
	if err := t.requireAssignee(pickerID); err != nil {
		return err
	}
	t.transition(TaskStatusInProgress, pickerID, "started", "")
	t.addEvent(NewTaskStartedEvent(t))
	return nil
}

// UpdateProgress records placed quantities for the assigned picker
func (t *FulfillmentTask) UpdateProgress(pickerID string, currentIndex int, placed map[string]float64) error {
	if t.Status != TaskStatusInProgress {
		return fmt.Errorf("%w: cannot record progress in %s", ErrInvalidTransition, t.Status)
	}
	if err := t.requireAssignee(pickerID); err != nil {
		return err
	}

	if currentIndex > t.Progress.CurrentIndex {
		t.Progress.CurrentIndex = currentIndex
	}
	if t.Progress.Placed == nil {
		t.Progress.Placed = map[string]float64{}
	}
	for itemID, qty := range placed {
		t.Progress.Placed[itemID] = qty
	}
	t.touch(pickerID, "progress", "")
	return nil
}

// Complete finishes the task
func (t *FulfillmentTask) Complete(pickerID string) error {
	if t.Status != TaskStatusInProgress && t.Status != TaskStatusClaimed {
		return fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, t.Status)
	}
	if err := t.requireAssignee(pickerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	t.Progress.FinishedAt = &now
	t.transition(TaskStatusDone, pickerID, "completed", "")
	t.addEvent(NewTaskCompletedEvent(t))
	return nil
}

// ReportProblem flags the task for operator attention. The task leaves the
// picker's queue, so any assignment is dropped. Only claimed, in_progress and
// done tasks carry an assignee.
func (t *FulfillmentTask) ReportProblem(actor, note string) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTaskTerminal, t.Status)
	}
	t.AssignedPicker = ""
	t.Progress.StartedAt = nil
	t.transition(TaskStatusProblem, actor, "problem", note)
	t.addEvent(NewTaskProblemEvent(t, note))
	return nil
}

// Cancel removes the task from the work pool without deleting it
func (t *FulfillmentTask) Cancel(actor, note string) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTaskTerminal, t.Status)
	}
	t.AssignedPicker = ""
	t.transition(TaskStatusCancelled, actor, "cancelled", note)
	t.addEvent(NewTaskCancelledEvent(t, note))
	return nil
}

func (t *FulfillmentTask) requireAssignee(pickerID string) error {
	if pickerID == "" {
		return ErrMissingActor
	}
	if t.AssignedPicker == "" {
		return ErrNotAssigned
	}
	if t.AssignedPicker != pickerID {
		return ErrWrongPicker
	}
	return nil
}

func (t *FulfillmentTask) transition(to TaskStatus, actor, action, note string) {
	t.Status = to
	t.touch(actor, action, note)
}

func (t *FulfillmentTask) touch(actor, action, note string) {
	now := time.Now().UTC()
	t.UpdatedAt = now
	t.Audit = append(t.Audit, AuditEntry{Action: action, Actor: actor, At: now, Note: note})
}

func (t *FulfillmentTask) addEvent(event DomainEvent) {
	t.DomainEvents = append(t.DomainEvents, event)
}

// ClearEvents drains the pending domain events after they are persisted
func (t *FulfillmentTask) ClearEvents() {
	t.DomainEvents = nil
}
