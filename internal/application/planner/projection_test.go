package planner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
	"github.com/smilemakc/atelier/testutil"
)

func projectionFixture(t *testing.T) (*testutil.FakeBackends, *planner.PlanningSession) {
	t.Helper()
	cal := parisCal(t)

	backends := testutil.NewFakeBackends(twoRows(), []*scheduling.Task{
		seedTask(cal, 1, 1, 0, 6),
		seedTask(cal, 2, 2, 8, 4),
	})
	loc := cal.StartDate.Location()
	backends.Closure = []scheduling.Closure{
		{ID: 1, PlanningID: 1, Date: time.Date(2025, 8, 15, 0, 0, 0, 0, loc)},                          // global
		{ID: 2, PlanningID: 1, Date: time.Date(2025, 8, 13, 0, 0, 0, 0, loc), RowID: ptr(int64(2))}, // row 2 only
	}
	backends.Affair = []scheduling.Affair{{ID: 4, PlanningID: 1, Name: "Commande Airbus", Color: "#3366cc"}}

	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), logger.Default())
	require.NoError(t, err)
	session, err := manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)
	return backends, session
}

func TestBuildViewAxis(t *testing.T) {
	_, session := projectionFixture(t)

	view := planner.BuildView(session)

	assert.Equal(t, int64(1), view.PlanningID)
	assert.Equal(t, "2025-08-11", view.StartDate)
	assert.Equal(t, 60, view.Horizon)
	require.Len(t, view.Slots, 60)

	// 2025-08-11 is a Monday in ISO week 33.
	assert.Equal(t, "11/08", view.Slots[0].Date)
	assert.Equal(t, "AM", view.Slots[0].Period)
	assert.Equal(t, "PM", view.Slots[1].Period)
	assert.Equal(t, "Lundi", view.Slots[0].DayName)

	require.NotEmpty(t, view.Weeks)
	assert.Equal(t, "S33/2025", view.Weeks[0].Name)
	assert.Equal(t, 0, view.Weeks[0].StartSlot)
	assert.Equal(t, 14, view.Weeks[0].Span, "a full week spans 7 days = 14 slots")
	assert.Equal(t, "S34/2025", view.Weeks[1].Name)

	require.NotEmpty(t, view.Months)
	assert.Equal(t, "08/2025", view.Months[0].Name)

	require.Len(t, view.Days, 30)
	assert.Equal(t, "11/08", view.Days[0].Date)
}

func TestBuildViewClosures(t *testing.T) {
	_, session := projectionFixture(t)

	view := planner.BuildView(session)

	// 2025-08-15 is day 4: slots 8 and 9, closed globally.
	assert.True(t, view.Slots[8].Closed)
	assert.True(t, view.Slots[9].Closed)
	assert.False(t, view.Slots[7].Closed)

	// 2025-08-13 is day 2: slots 4 and 5, closed for row 2 only.
	require.Contains(t, view.ClosedRow, int64(1))
	require.Contains(t, view.ClosedRow, int64(2))
	assert.False(t, view.ClosedRow[1][4])
	assert.True(t, view.ClosedRow[2][4])
	assert.True(t, view.ClosedRow[2][5])

	// Global closures close every row.
	assert.True(t, view.ClosedRow[1][8])
	assert.True(t, view.ClosedRow[2][8])
}

func TestBuildViewTasks(t *testing.T) {
	_, session := projectionFixture(t)

	view := planner.BuildView(session)

	require.Len(t, view.Tasks, 2)
	byID := map[int64]planner.TaskView{}
	for _, tv := range view.Tasks {
		byID[tv.ID] = tv
	}

	assert.Equal(t, 0, byID[1].StartSlot)
	assert.Equal(t, 6, byID[1].DurationSlots)
	assert.Equal(t, 21.0, byID[1].DurationHours) // 6 slots * 3.5h

	assert.Equal(t, 8, byID[2].StartSlot)
	assert.Equal(t, int64(2), byID[2].RowID)

	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Dupont", view.Rows[0].Name)
	require.Len(t, view.Affairs, 1)
	assert.Equal(t, "#3366cc", view.Affairs[0].Color)
}

func TestManagerReloadTasksReplacesStore(t *testing.T) {
	backends, session := projectionFixture(t)
	cal := parisCal(t)

	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), logger.Default())
	require.NoError(t, err)

	// Upstream changed: only one task remains.
	backends.TaskList = []*scheduling.Task{seedTask(cal, 7, 1, 2, 2)}
	require.NoError(t, manager.Reload(context.Background(), session, planner.ReloadTasks))

	session.RLock()
	defer session.RUnlock()
	assert.Nil(t, session.Store().ByID(1))
	require.NotNil(t, session.Store().ByID(7))
}

func TestManagerGetUnknownPlanning(t *testing.T) {
	backends, _ := projectionFixture(t)
	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), logger.Default())
	require.NoError(t, err)

	_, err = manager.Get("default", 99)
	assert.ErrorIs(t, err, planner.ErrNoPlanningSelected)
}
