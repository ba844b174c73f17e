package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/application/session"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
	"github.com/smilemakc/atelier/internal/infrastructure/storage"
)

// PlanningHandlers serves the navigation surface: database and planning
// selection, the planning view projection and the reload endpoints.
type PlanningHandlers struct {
	provider *storage.Provider
	manager  *planner.Manager
	sessions *SessionMiddleware
	logger   *logger.Logger
	debug    bool
}

// NewPlanningHandlers creates PlanningHandlers.
func NewPlanningHandlers(provider *storage.Provider, manager *planner.Manager, sessions *SessionMiddleware, log *logger.Logger, debug bool) *PlanningHandlers {
	return &PlanningHandlers{
		provider: provider,
		manager:  manager,
		sessions: sessions,
		logger:   log,
		debug:    debug,
	}
}

// currentSession resolves the planning session selected by the request's
// cookie. The Require* middlewares guarantee the state exists.
func (h *PlanningHandlers) currentSession(c *gin.Context) (*planner.PlanningSession, bool) {
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

// HandleLanding lists the selectable databases.
func (h *PlanningHandlers) HandleLanding(c *gin.Context) {
	type databaseEntry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]databaseEntry, 0, len(h.provider.Specs()))
	for _, spec := range h.provider.Specs() {
		out = append(out, databaseEntry{ID: spec.ID, Name: spec.Name})
	}
	respondJSON(c, http.StatusOK, gin.H{"databases": out})
}

// HandleSelectDatabase opens the chosen database, binds it to the
// session cookie and redirects to the planning selection.
func (h *PlanningHandlers) HandleSelectDatabase(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.provider.Get(id); err != nil {
		respondAPIError(c, err)
		return
	}
	if err := h.sessions.SetState(c, session.State{DatabaseID: id}); err != nil {
		respondAPIError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/planning_selection")
}

// HandlePlanningSelection lists the active plannings of the selected
// database with their task and affair counts.
func (h *PlanningHandlers) HandlePlanningSelection(c *gin.Context) {
	state := SessionState(c)
	db, err := h.provider.Get(state.DatabaseID)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	repo := storage.NewPlanningRepository(db, h.manager.Location())
	plannings, err := repo.List(c.Request.Context())
	if err != nil {
		respondAPIError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"plannings": plannings})
}

// HandleSelectPlanning loads the planning into memory, binds it to the
// session cookie and redirects to the planning view.
func (h *PlanningHandlers) HandleSelectPlanning(c *gin.Context) {
	id, ok := getIDParam(c, "id")
	if !ok {
		return
	}
	state := SessionState(c)

	if _, err := h.manager.Select(c.Request.Context(), state.DatabaseID, id); err != nil {
		respondAPIError(c, err)
		return
	}
	if err := h.sessions.SetState(c, session.State{DatabaseID: state.DatabaseID, PlanningID: id}); err != nil {
		respondAPIError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/planning")
}

// HandleChangeDatabase returns to the database selection.
func (h *PlanningHandlers) HandleChangeDatabase(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}

// HandleChangePlanning returns to the planning selection.
func (h *PlanningHandlers) HandleChangePlanning(c *gin.Context) {
	c.Redirect(http.StatusFound, "/planning_selection")
}

// HandlePlanningView returns the full plan projection: rows, slot axis
// with day/week/month headers, closure masks and task positions.
func (h *PlanningHandlers) HandlePlanningView(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	respondJSON(c, http.StatusOK, planner.BuildView(s))
}

// HandleGetPlanningData returns the raw current data set: tasks, rows
// and affairs, without the axis headers.
func (h *PlanningHandlers) HandleGetPlanningData(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	view := planner.BuildView(s)
	respondJSON(c, http.StatusOK, gin.H{
		"tasks":     view.Tasks,
		"operators": view.Rows,
		"affairs":   view.Affairs,
	})
}

// HandleGetAffairs returns the loaded affairs.
func (h *PlanningHandlers) HandleGetAffairs(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	view := planner.BuildView(s)
	respondJSON(c, http.StatusOK, view.Affairs)
}

// HandleGetOperators returns the loaded rows in display order.
func (h *PlanningHandlers) HandleGetOperators(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	view := planner.BuildView(s)
	respondJSON(c, http.StatusOK, view.Rows)
}

// HandleDebugTasks dumps the in-memory task set with derived slot
// coordinates. Only registered when debug logging is on.
func (h *PlanningHandlers) HandleDebugTasks(c *gin.Context) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	view := planner.BuildView(s)
	respondJSON(c, http.StatusOK, gin.H{
		"planning_id": view.PlanningID,
		"num_slots":   view.Horizon,
		"tasks":       view.Tasks,
	})
}

// reload executes one reload scope against the current session.
func (h *PlanningHandlers) reload(c *gin.Context, scope planner.ReloadScope) {
	s, ok := h.currentSession(c)
	if !ok {
		return
	}
	if err := h.manager.Reload(c.Request.Context(), s, scope); err != nil {
		respondAPIError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"success": true, "scope": string(scope)})
}

// HandleReloadData reloads everything.
func (h *PlanningHandlers) HandleReloadData(c *gin.Context) {
	h.reload(c, planner.ReloadAll)
}

// HandleReloadTasks reloads the task set only.
func (h *PlanningHandlers) HandleReloadTasks(c *gin.Context) {
	h.reload(c, planner.ReloadTasks)
}

// HandleReloadOperators reloads rows and closures.
func (h *PlanningHandlers) HandleReloadOperators(c *gin.Context) {
	h.reload(c, planner.ReloadRows)
}

// HandleReloadAffairs reloads affairs only.
func (h *PlanningHandlers) HandleReloadAffairs(c *gin.Context) {
	h.reload(c, planner.ReloadAffairs)
}
