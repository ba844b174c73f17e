package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// PropagateHandlers exposes the two operator-triggered propagation
// passes.
type PropagateHandlers struct {
	manager    *planner.Manager
	propagator *planner.Propagator
	logger     *logger.Logger
}

// NewPropagateHandlers creates PropagateHandlers.
func NewPropagateHandlers(manager *planner.Manager, propagator *planner.Propagator, log *logger.Logger) *PropagateHandlers {
	return &PropagateHandlers{manager: manager, propagator: propagator, logger: log}
}

func (h *PropagateHandlers) session(c *gin.Context) (*planner.PlanningSession, bool) {
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

// HandlePropagateProductions pushes each production's earliest task
// start onto its planned start date.
func (h *PropagateHandlers) HandlePropagateProductions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	summary, err := h.propagator.PropagateProductionStarts(c.Request.Context(), s)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"success": true, "summary": summary})
}

// HandlePropagateOperations recomputes the operation-line chains from
// the planned tasks.
func (h *PropagateHandlers) HandlePropagateOperations(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	summary, err := h.propagator.PropagateOperationTimes(c.Request.Context(), s)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"success": true, "summary": summary})
}
