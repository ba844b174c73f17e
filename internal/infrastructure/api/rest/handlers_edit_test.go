package rest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/application/session"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
	"github.com/smilemakc/atelier/testutil"
)

type editTestEnv struct {
	router   *gin.Engine
	backends *testutil.FakeBackends
	cookie   *http.Cookie
}

func seedEditTask(t *testing.T, id, row int64, slot, durSlots int) *scheduling.Task {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	cal := scheduling.NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, loc), 3.5)
	task := &scheduling.Task{ID: id, PlanningID: 1, RowID: row, Name: "T"}
	task.SetSlot(cal, scheduling.Slot(slot), durSlots)
	return task
}

func newEditTestEnv(t *testing.T, tasks []*scheduling.Task) *editTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rows := []scheduling.Row{
		{ID: 1, PlanningID: 1, Name: "Dupont"},
		{ID: 2, PlanningID: 1, Name: "Martin"},
	}
	backends := testutil.NewFakeBackends(rows, tasks)
	log := logger.Default()

	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	_, err = manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)

	sessionService, err := session.NewService(config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "atelier_session",
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	token, err := sessionService.Issue(session.State{DatabaseID: "default", PlanningID: 1})
	require.NoError(t, err)

	sessionMiddleware := NewSessionMiddleware(sessionService)
	coordinator := planner.NewCoordinator(testutil.SchedulingConfig(), log, nil, nil)
	handlers := NewEditHandlers(manager, coordinator, log)

	router := gin.New()
	router.Use(sessionMiddleware.Load())
	group := router.Group("/", sessionMiddleware.RequirePlanning())
	{
		group.POST("/move_task", handlers.HandleMoveTask)
		group.POST("/resize_task", handlers.HandleResizeTask)
		group.POST("/resize_and_move_task", handlers.HandleResizeAndMoveTask)
		group.POST("/keyboard_move_task", handlers.HandleKeyboardMoveTask)
	}

	return &editTestEnv{
		router:   router,
		backends: backends,
		cookie:   &http.Cookie{Name: sessionService.CookieName(), Value: token},
	}
}

func (env *editTestEnv) post(t *testing.T, path string, body interface{}) map[string]any {
	t.Helper()
	w := testutil.MakeRequestWithCookies(t, env.router, "POST", path, body, []*http.Cookie{env.cookie})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	return testutil.DecodeJSON(t, w)
}

func TestMoveTaskEndpoint(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{
		seedEditTask(t, 1, 1, 0, 6),
		seedEditTask(t, 2, 1, 8, 4),
	})

	resp := env.post(t, "/move_task", map[string]any{
		"task_id": 1, "operator_id": 1, "start_slot": 6,
	})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(6), resp["new_slot"])

	batch := env.backends.Persist.LastBatch()
	require.Len(t, batch, 2)
}

func TestMoveTaskEndpointUnknownTask(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{seedEditTask(t, 1, 1, 0, 4)})

	resp := env.post(t, "/move_task", map[string]any{
		"task_id": 42, "operator_id": 1, "start_slot": 0,
	})
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, planner.MsgTaskNotFound, resp["error"])
}

func TestMoveTaskEndpointMissingFields(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{seedEditTask(t, 1, 1, 0, 4)})

	resp := env.post(t, "/move_task", map[string]any{"task_id": 1})
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

func TestMoveTaskEndpointInvalidJSON(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{seedEditTask(t, 1, 1, 0, 4)})

	w := testutil.MakeRequestWithCookies(t, env.router, "POST", "/move_task", nil, []*http.Cookie{env.cookie})
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.DecodeJSON(t, w)
	assert.Equal(t, false, resp["success"])
}

func TestResizeTaskEndpoint(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{
		seedEditTask(t, 1, 1, 0, 4),
		seedEditTask(t, 2, 1, 4, 4),
	})

	resp := env.post(t, "/resize_task", map[string]any{"task_id": 1, "duration": 6})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(6), resp["new_duration"])
}

func TestKeyboardMoveTaskEndpoint(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{
		seedEditTask(t, 99, 2, 0, 1),
		seedEditTask(t, 1, 1, 10, 4),
		seedEditTask(t, 2, 1, 4, 6),
	})

	resp := env.post(t, "/keyboard_move_task", map[string]any{"task_id": 1, "direction": "left"})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(9), resp["new_slot"])
}

func TestKeyboardMoveTaskEndpointBadDirection(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{seedEditTask(t, 1, 1, 0, 4)})

	resp := env.post(t, "/keyboard_move_task", map[string]any{"task_id": 1, "direction": "diagonal"})
	assert.Equal(t, false, resp["success"])
}

func TestResizeAndMoveTaskEndpoint(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{
		seedEditTask(t, 99, 1, 0, 1),
		seedEditTask(t, 1, 1, 4, 4),
	})

	resp := env.post(t, "/resize_and_move_task", map[string]any{
		"task_id": 1, "operator_id": 2, "start_slot": 2, "duration": 6,
	})
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["new_slot"])
	assert.Equal(t, float64(6), resp["new_duration"])
}

func TestEditRequiresSession(t *testing.T) {
	env := newEditTestEnv(t, []*scheduling.Task{seedEditTask(t, 1, 1, 0, 4)})

	w := testutil.MakeRequest(t, env.router, "POST", "/move_task", map[string]any{
		"task_id": 1, "operator_id": 1, "start_slot": 0,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
