package cloudevents

import (
	"time"
)

// EventType constants for fulfilment domain events
const (
	TaskCreated   = "dfcp.fulfillment.task-created"
	TaskReleased  = "dfcp.fulfillment.task-released"
	TaskClaimed   = "dfcp.fulfillment.task-claimed"
	TaskStarted   = "dfcp.fulfillment.task-started"
	TaskCompleted = "dfcp.fulfillment.task-completed"
	TaskProblem   = "dfcp.fulfillment.task-problem"
	TaskCancelled = "dfcp.fulfillment.task-cancelled"
	TasksGenerated = "dfcp.fulfillment.shift-tasks-generated"
)

// Source constants for event sources
const (
	SourceFulfillment = "/dfcp/fulfillment-service"
)

// Event represents a CloudEvents v1.0 compliant event for the platform
type Event struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Platform-specific extensions
	CorrelationID string `json:"dfcpcorrelationid,omitempty"`
	WorkCenter    string `json:"dfcpworkcenter,omitempty"`
	Shift         string `json:"dfcpshift,omitempty"`
	OrderID       string `json:"dfcporderid,omitempty"`
	TaskID        string `json:"dfcptaskid,omitempty"`
}
