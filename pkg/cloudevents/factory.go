package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for a specific source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new Event with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *Event {
	return &Event{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateTaskEvent creates an event scoped to a fulfilment task
func (f *EventFactory) CreateTaskEvent(
	ctx context.Context,
	eventType string,
	taskID string,
	workCenter string,
	shift string,
	orderID string,
	data interface{},
) *Event {
	event := f.CreateEvent(ctx, eventType, "task/"+taskID, data)
	event.TaskID = taskID
	event.WorkCenter = workCenter
	event.Shift = shift
	event.OrderID = orderID
	return event
}
