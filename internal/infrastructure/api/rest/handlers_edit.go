package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// EditHandlers serves the four edit operations. Their error contract is
// the engine's: user-level rejections come back as HTTP 200 with
// success:false, HTTP 5xx is reserved for infrastructure faults.
type EditHandlers struct {
	manager     *planner.Manager
	coordinator *planner.Coordinator
	logger      *logger.Logger
}

// NewEditHandlers creates EditHandlers.
func NewEditHandlers(manager *planner.Manager, coordinator *planner.Coordinator, log *logger.Logger) *EditHandlers {
	return &EditHandlers{manager: manager, coordinator: coordinator, logger: log}
}

func (h *EditHandlers) session(c *gin.Context) (*planner.PlanningSession, bool) {
	state := SessionState(c)
	if state == nil {
		respondAPIError(c, planner.ErrNoPlanningSelected)
		return nil, false
	}
	s, err := h.manager.Get(state.DatabaseID, state.PlanningID)
	if err != nil {
		respondAPIError(c, err)
		return nil, false
	}
	return s, true
}

type moveTaskRequest struct {
	TaskID     int64 `json:"task_id" binding:"required"`
	OperatorID int64 `json:"operator_id" binding:"required"`
	StartSlot  *int  `json:"start_slot" binding:"required"`
}

// HandleMoveTask moves a task to a row and slot, cascading pushes right.
func (h *EditHandlers) HandleMoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	result := h.coordinator.Move(c.Request.Context(), s, req.TaskID, req.OperatorID, *req.StartSlot)
	respondJSON(c, http.StatusOK, result)
}

type resizeTaskRequest struct {
	TaskID   int64 `json:"task_id" binding:"required"`
	Duration *int  `json:"duration" binding:"required"`
}

// HandleResizeTask sets a task's duration in slots.
func (h *EditHandlers) HandleResizeTask(c *gin.Context) {
	var req resizeTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	result := h.coordinator.Resize(c.Request.Context(), s, req.TaskID, *req.Duration)
	respondJSON(c, http.StatusOK, result)
}

type resizeAndMoveTaskRequest struct {
	TaskID     int64 `json:"task_id" binding:"required"`
	OperatorID int64 `json:"operator_id" binding:"required"`
	StartSlot  *int  `json:"start_slot" binding:"required"`
	Duration   *int  `json:"duration" binding:"required"`
}

// HandleResizeAndMoveTask applies a combined left-edge resize: row,
// start and duration in one edit.
func (h *EditHandlers) HandleResizeAndMoveTask(c *gin.Context) {
	var req resizeAndMoveTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	result := h.coordinator.ResizeAndMove(c.Request.Context(), s, req.TaskID, req.OperatorID, *req.StartSlot, *req.Duration)
	respondJSON(c, http.StatusOK, result)
}

type keyboardMoveTaskRequest struct {
	TaskID    int64  `json:"task_id" binding:"required"`
	Direction string `json:"direction" binding:"required,oneof=left right up down"`
}

// HandleKeyboardMoveTask nudges a task by one slot or one row.
func (h *EditHandlers) HandleKeyboardMoveTask(c *gin.Context) {
	var req keyboardMoveTaskRequest
	if err := bindJSON(c, &req); err != nil {
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}

	result := h.coordinator.KeyboardNudge(c.Request.Context(), s, req.TaskID, scheduling.Direction(req.Direction))
	respondJSON(c, http.StatusOK, result)
}
