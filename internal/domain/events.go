package domain

import (
	"time"

	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
)

// DomainEvent is raised by task transitions and drained into the outbox on save
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

type baseEvent struct {
	eventType  string
	occurredAt time.Time

	TaskID     string `json:"taskId"`
	WorkCenter string `json:"workCenter"`
	Shift      string `json:"shift"`
	ShiftDate  string `json:"shiftDate"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Picker     string `json:"picker,omitempty"`
	Note       string `json:"note,omitempty"`
}

func (e baseEvent) EventType() string     { return e.eventType }
func (e baseEvent) OccurredAt() time.Time { return e.occurredAt }

func newBaseEvent(eventType string, t *FulfillmentTask, note string) baseEvent {
	return baseEvent{
		eventType:  eventType,
		occurredAt: time.Now().UTC(),
		TaskID:     t.TaskID,
		WorkCenter: t.WorkCenter,
		Shift:      t.Shift,
		ShiftDate:  t.ShiftDate,
		OrderID:    t.OrderID,
		Status:     string(t.Status),
		Picker:     t.AssignedPicker,
		Note:       note,
	}
}

// TaskCreatedEvent is raised when a new task is generated
type TaskCreatedEvent struct {
	baseEvent
	BoxCount   int     `json:"boxCount"`
	TotalEstKg float64 `json:"totalEstKg"`
	Priority   int     `json:"priority"`
}

func NewTaskCreatedEvent(t *FulfillmentTask) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent:  newBaseEvent(cloudevents.TaskCreated, t, ""),
		BoxCount:   t.Plan.Summary.BoxCount,
		TotalEstKg: t.TotalEstKg,
		Priority:   t.Priority,
	}
}

// TaskReleasedEvent is raised when a task becomes claimable
type TaskReleasedEvent struct{ baseEvent }

func NewTaskReleasedEvent(t *FulfillmentTask) TaskReleasedEvent {
	return TaskReleasedEvent{newBaseEvent(cloudevents.TaskReleased, t, "")}
}

// TaskClaimedEvent is raised when a picker wins a claim
type TaskClaimedEvent struct{ baseEvent }

func NewTaskClaimedEvent(t *FulfillmentTask) TaskClaimedEvent {
	return TaskClaimedEvent{newBaseEvent(cloudevents.TaskClaimed, t, "")}
}

// TaskStartedEvent is raised when picking begins
type TaskStartedEvent struct{ baseEvent }

func NewTaskStartedEvent(t *FulfillmentTask) TaskStartedEvent {
	return TaskStartedEvent{newBaseEvent(cloudevents.TaskStarted, t, "")}
}

// TaskCompletedEvent is raised when the task is done
type TaskCompletedEvent struct{ baseEvent }

func NewTaskCompletedEvent(t *FulfillmentTask) TaskCompletedEvent {
	return TaskCompletedEvent{newBaseEvent(cloudevents.TaskCompleted, t, "")}
}

// TaskProblemEvent is raised when a task is flagged for attention
type TaskProblemEvent struct{ baseEvent }

func NewTaskProblemEvent(t *FulfillmentTask, note string) TaskProblemEvent {
	return TaskProblemEvent{newBaseEvent(cloudevents.TaskProblem, t, note)}
}

// TaskCancelledEvent is raised when a task is withdrawn
type TaskCancelledEvent struct{ baseEvent }

func NewTaskCancelledEvent(t *FulfillmentTask, note string) TaskCancelledEvent {
	return TaskCancelledEvent{newBaseEvent(cloudevents.TaskCancelled, t, note)}
}
