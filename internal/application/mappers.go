package application

import "github.com/DFCPagro/DFCP-sub001/internal/domain"

// ToTaskDTO converts a domain task to its response representation
func ToTaskDTO(task *domain.FulfillmentTask) *TaskDTO {
	audit := make([]AuditEntryDTO, 0, len(task.Audit))
	for _, entry := range task.Audit {
		audit = append(audit, AuditEntryDTO{
			Action: entry.Action,
			Actor:  entry.Actor,
			At:     entry.At,
			Note:   entry.Note,
		})
	}

	return &TaskDTO{
		TaskID:         task.TaskID,
		WorkCenter:     task.WorkCenter,
		Shift:          task.Shift,
		ShiftDate:      task.ShiftDate,
		OrderID:        task.OrderID,
		Status:         string(task.Status),
		Priority:       task.Priority,
		AssignedPicker: task.AssignedPicker,
		Plan:           task.Plan,
		TotalEstKg:     task.TotalEstKg,
		TotalLiters:    task.TotalLiters,
		TotalEstUnits:  task.TotalEstUnits,
		Progress: ProgressDTO{
			CurrentIndex: task.Progress.CurrentIndex,
			Placed:       task.Progress.Placed,
			StartedAt:    task.Progress.StartedAt,
			FinishedAt:   task.Progress.FinishedAt,
		},
		Audit:     audit,
		Notes:     task.Notes,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}

// ToTaskSummaryDTO converts a domain task to its listing representation
func ToTaskSummaryDTO(task *domain.FulfillmentTask) TaskSummaryDTO {
	return TaskSummaryDTO{
		TaskID:         task.TaskID,
		OrderID:        task.OrderID,
		Status:         string(task.Status),
		Priority:       task.Priority,
		AssignedPicker: task.AssignedPicker,
		BoxCount:       len(task.Plan.Boxes),
		TotalEstKg:     task.TotalEstKg,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

// ToTaskPageDTO converts a repository page to its response representation
func ToTaskPageDTO(page *domain.TaskPage, pageNum, pageSize int64) *TaskPageDTO {
	items := make([]TaskSummaryDTO, 0, len(page.Items))
	for _, task := range page.Items {
		items = append(items, ToTaskSummaryDTO(task))
	}

	byStatus := make(map[string]int64, len(page.CountsByStatus))
	for status, count := range page.CountsByStatus {
		byStatus[string(status)] = count
	}

	return &TaskPageDTO{
		Items:          items,
		TotalItems:     page.TotalItems,
		Page:           pageNum,
		PageSize:       pageSize,
		CountsByStatus: byStatus,
		CountsByPicker: page.CountsByPicker,
	}
}
