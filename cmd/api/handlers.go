package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DFCPagro/DFCP-sub001/internal/application"
	"github.com/DFCPagro/DFCP-sub001/internal/packing"
	"github.com/DFCPagro/DFCP-sub001/pkg/api"
	"github.com/DFCPagro/DFCP-sub001/pkg/errors"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/middleware"
)

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}

func generateTasksHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			WorkCenter  string `json:"workCenter" binding:"required,work_center"`
			Shift       string `json:"shift" binding:"omitempty,shift_name"`
			ShiftDate   string `json:"shiftDate" binding:"omitempty,shift_date"`
			Actor       string `json:"actor" binding:"required"`
			AutoRelease bool   `json:"autoRelease"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		result, err := service.GenerateTasksForShift(c.Request.Context(), application.GenerateTasksCommand{
			WorkCenter:  req.WorkCenter,
			Shift:       req.Shift,
			ShiftDate:   req.ShiftDate,
			Actor:       req.Actor,
			AutoRelease: req.AutoRelease,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func claimTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			WorkCenter string `json:"workCenter" binding:"required,work_center"`
			Shift      string `json:"shift" binding:"omitempty,shift_name"`
			ShiftDate  string `json:"shiftDate" binding:"omitempty,shift_date"`
			PickerID   string `json:"pickerId" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.ClaimNextTask(c.Request.Context(), application.ClaimTaskCommand{
			WorkCenter: req.WorkCenter,
			Shift:      req.Shift,
			ShiftDate:  req.ShiftDate,
			PickerID:   req.PickerID,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func listTasksHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		workCenter := c.Query("workCenter")
		shift := c.Query("shift")
		shiftDate := c.Query("shiftDate")
		if workCenter == "" || shift == "" || shiftDate == "" {
			responder.RespondValidationError("workCenter, shift and shiftDate are required", nil)
			return
		}

		pageReq := api.ParsePagination(c)

		result, err := service.ListTasks(c.Request.Context(), application.ListTasksQuery{
			WorkCenter:     workCenter,
			Shift:          shift,
			ShiftDate:      shiftDate,
			Status:         c.Query("status"),
			AssignedPicker: c.Query("assignedPicker"),
			Page:           pageReq.Page,
			PageSize:       pageReq.PageSize,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		task, err := service.GetTask(c.Request.Context(), application.GetTaskQuery{
			TaskID: c.Param("taskId"),
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func releaseTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Actor string `json:"actor" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.ReleaseTask(c.Request.Context(), application.ReleaseTaskCommand{
			TaskID: c.Param("taskId"),
			Actor:  req.Actor,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func releaseClaimHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Actor string `json:"actor" binding:"required"`
			Note  string `json:"note"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.ReleaseClaim(c.Request.Context(), application.ReleaseClaimCommand{
			TaskID: c.Param("taskId"),
			Actor:  req.Actor,
			Note:   req.Note,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func startTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PickerID string `json:"pickerId" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.StartTask(c.Request.Context(), application.StartTaskCommand{
			TaskID:   c.Param("taskId"),
			PickerID: req.PickerID,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func updateProgressHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PickerID     string             `json:"pickerId" binding:"required"`
			CurrentIndex int                `json:"currentIndex"`
			Placed       map[string]float64 `json:"placed"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.UpdateProgress(c.Request.Context(), application.UpdateProgressCommand{
			TaskID:       c.Param("taskId"),
			PickerID:     req.PickerID,
			CurrentIndex: req.CurrentIndex,
			Placed:       req.Placed,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func completeTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			PickerID string `json:"pickerId" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.CompleteTask(c.Request.Context(), application.CompleteTaskCommand{
			TaskID:   c.Param("taskId"),
			PickerID: req.PickerID,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func reportProblemHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Actor string `json:"actor" binding:"required"`
			Note  string `json:"note" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.ReportProblem(c.Request.Context(), application.ReportProblemCommand{
			TaskID: c.Param("taskId"),
			Actor:  req.Actor,
			Note:   req.Note,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func cancelTaskHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Actor string `json:"actor" binding:"required"`
			Note  string `json:"note"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		task, err := service.CancelTask(c.Request.Context(), application.CancelTaskCommand{
			TaskID: c.Param("taskId"),
			Actor:  req.Actor,
			Note:   req.Note,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, task)
	}
}

func previewPlanHandler(service *application.FulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Lines []packing.OrderLine `json:"lines" binding:"required"`
		}
		if err := middleware.BindAndValidate(c, &req); err != nil {
			responder.RespondWithAppError(err)
			return
		}

		preview, err := service.PreviewPlan(c.Request.Context(), application.PreviewPlanCommand{
			Lines: req.Lines,
		})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, preview)
	}
}
