package domain

import (
	"context"

	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// Scope is the uniqueness tuple for task generation and claiming
type Scope struct {
	WorkCenter string `json:"workCenter"`
	Shift      string `json:"shift"`
	ShiftDate  string `json:"shiftDate"`
}

// TaskListQuery filters and pages a task listing within a scope
type TaskListQuery struct {
	Scope          Scope
	Status         TaskStatus
	AssignedPicker string
	Page           int64
	PageSize       int64
}

// TaskPage is one page of tasks plus scope-wide aggregations
type TaskPage struct {
	Items          []*FulfillmentTask
	TotalItems     int64
	CountsByStatus map[TaskStatus]int64
	CountsByPicker map[string]int64
}

// TaskRepository persists fulfilment tasks
type TaskRepository interface {
	// CreateIfAbsent inserts the task unless one already exists for its
	// (workCenter, shift, shiftDate, orderId) tuple. Returns true when this
	// call created the task; a concurrent loser gets false with no error.
	CreateIfAbsent(ctx context.Context, task *FulfillmentTask) (bool, error)

	// Save persists the aggregate and its pending domain events atomically
	Save(ctx context.Context, task *FulfillmentTask) error

	// FindByTaskID returns the task or (nil, nil) when absent
	FindByTaskID(ctx context.Context, taskID string) (*FulfillmentTask, error)

	// OrderIDsWithTasks returns the order ids that already have a task in scope
	OrderIDsWithTasks(ctx context.Context, scope Scope) (map[string]bool, error)

	// ReleaseOpenTasks bulk-transitions open tasks in scope to ready and
	// returns how many were released
	ReleaseOpenTasks(ctx context.Context, scope Scope, actor string) (int64, error)

	// ClaimNextReady atomically claims the best available task for a picker:
	// highest priority first, oldest first among equals. Returns (nil, nil)
	// when nothing is claimable.
	ClaimNextReady(ctx context.Context, scope Scope, pickerID, pickerName string) (*FulfillmentTask, error)

	// List returns a filtered, paginated view of the scope's tasks
	List(ctx context.Context, query TaskListQuery) (*TaskPage, error)
}

// Order is the slice of an order the generator needs
type Order struct {
	ID       string              `json:"id"`
	Priority int                 `json:"priority"`
	Lines    []packing.OrderLine `json:"lines"`
}

// OrderSource supplies the orders in a shift scope
type OrderSource interface {
	OrdersForShift(ctx context.Context, scope Scope) ([]Order, error)
}

// ItemCatalog supplies item classification hints in bulk
type ItemCatalog interface {
	ItemsByID(ctx context.Context, ids []string) (map[string]packing.Item, error)
}

// ContainerCatalog supplies the available box types
type ContainerCatalog interface {
	ContainerTypes(ctx context.Context) ([]packing.ContainerType, error)
}

// OverrideSource supplies per-item packing overrides in bulk
type OverrideSource interface {
	OverridesByID(ctx context.Context, ids []string) (map[string]*packing.Override, error)
}

// ShiftResolver maps a work center to its currently active shift scope
type ShiftResolver interface {
	CurrentShift(ctx context.Context, workCenter string) (Scope, error)
}

// Actor is a directory entry used to enrich audit trails
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// ActorDirectory resolves actor ids to display information. Lookups are
// best-effort; callers tolerate failures.
type ActorDirectory interface {
	FindActor(ctx context.Context, actorID string) (*Actor, error)
}
