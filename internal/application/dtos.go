package application

import (
	"time"

	"github.com/DFCPagro/DFCP-sub001/internal/packing"
)

// TaskDTO represents a fulfilment task in responses
type TaskDTO struct {
	TaskID         string          `json:"taskId"`
	WorkCenter     string          `json:"workCenter"`
	Shift          string          `json:"shift"`
	ShiftDate      string          `json:"shiftDate"`
	OrderID        string          `json:"orderId"`
	Status         string          `json:"status"`
	Priority       int             `json:"priority"`
	AssignedPicker string          `json:"assignedPicker,omitempty"`
	Plan           packing.Plan    `json:"plan"`
	TotalEstKg     float64         `json:"totalEstKg"`
	TotalLiters    float64         `json:"totalLiters"`
	TotalEstUnits  int             `json:"totalEstUnits"`
	Progress       ProgressDTO     `json:"progress"`
	Audit          []AuditEntryDTO `json:"audit"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProgressDTO mirrors the picker's advancement through the plan
type ProgressDTO struct {
	CurrentIndex int                `json:"currentIndex"`
	Placed       map[string]float64 `json:"placed,omitempty"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	FinishedAt   *time.Time         `json:"finishedAt,omitempty"`
}

// AuditEntryDTO is one audit trail record
type AuditEntryDTO struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

// TaskSummaryDTO is the compact listing shape
type TaskSummaryDTO struct {
	TaskID         string    `json:"taskId"`
	OrderID        string    `json:"orderId"`
	Status         string    `json:"status"`
	Priority       int       `json:"priority"`
	AssignedPicker string    `json:"assignedPicker,omitempty"`
	BoxCount       int       `json:"boxCount"`
	TotalEstKg     float64   `json:"totalEstKg"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TaskPageDTO is one page of task summaries plus scope-wide counts
type TaskPageDTO struct {
	Items          []TaskSummaryDTO `json:"items"`
	TotalItems     int64            `json:"totalItems"`
	Page           int64            `json:"page"`
	PageSize       int64            `json:"pageSize"`
	CountsByStatus map[string]int64 `json:"countsByStatus"`
	CountsByPicker map[string]int64 `json:"countsByPicker,omitempty"`
}

// GenerationResultDTO reports the outcome of one generation run
type GenerationResultDTO struct {
	WorkCenter string   `json:"workCenter"`
	Shift      string   `json:"shift"`
	ShiftDate  string   `json:"shiftDate"`
	OrdersSeen int      `json:"ordersSeen"`
	Created    int      `json:"created"`
	Skipped    int      `json:"skipped"`
	Empty      int      `json:"empty"`
	Failed     int      `json:"failed"`
	Released   int64    `json:"released"`
	Warnings   []string `json:"warnings,omitempty"`
}

// PlanPreviewDTO is a computed plan that was never persisted
type PlanPreviewDTO struct {
	Plan packing.Plan `json:"plan"`
}
