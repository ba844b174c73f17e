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

func ptr[T any](v T) *T { return &v }

func TestPropagateProductionStarts(t *testing.T) {
	cal := parisCal(t)

	early := seedTask(cal, 1, 1, 0, 2)
	early.ProductionID = ptr(int64(100))
	late := seedTask(cal, 2, 1, 6, 2)
	late.ProductionID = ptr(int64(100))
	other := seedTask(cal, 3, 2, 4, 2)
	other.ProductionID = ptr(int64(200))

	backends := testutil.NewFakeBackends(twoRows(), []*scheduling.Task{early, late, other})
	oldStart := early.Start.AddDate(0, 0, -10)
	backends.Production.Productions[100] = &planner.Production{ID: 100, Name: "OF100", PlannedStart: &oldStart}
	backends.Production.Productions[200] = &planner.Production{ID: 200, Name: "OF200"}

	log := logger.Default()
	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	session, err := manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)

	propagator := planner.NewPropagator(backends, log, nil)
	summary, err := propagator.PropagateProductionStarts(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ProductionsUpdated)
	assert.Equal(t, 0, summary.Skipped)

	// Each production lands on its earliest task, not the latest.
	got, err := backends.Production.FindProduction(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, got.PlannedStart)
	assert.True(t, got.PlannedStart.Equal(early.Start), "want %s, got %s", early.Start, got.PlannedStart)

	// Operator plannings never touch work orders.
	assert.Equal(t, 0, summary.WorkOrdersUpdated)
	assert.Empty(t, backends.Production.WorkOrders)
}

func TestPropagateProductionStartsBindsWorkOrders(t *testing.T) {
	cal := parisCal(t)

	task := seedTask(cal, 1, 1, 0, 2)
	task.ProductionID = ptr(int64(100))
	task.DurationHours = 7

	backends := testutil.NewFakeBackends([]scheduling.Row{{ID: 1, PlanningID: 1, Name: "Fraiseuse"}}, []*scheduling.Task{task})
	backends.Planning.DisplayType = scheduling.DisplayWorkcenterRows
	backends.Production.Productions[100] = &planner.Production{ID: 100, Name: "OF100"}

	log := logger.Default()
	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	session, err := manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)

	propagator := planner.NewPropagator(backends, log, nil)
	summary, err := propagator.PropagateProductionStarts(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.WorkOrdersUpdated)
	assert.Equal(t, int64(1), backends.Production.WorkOrders[100])
	assert.Equal(t, 7.0, backends.Production.Durations[100])
}

func TestPropagateOperationTimes(t *testing.T) {
	cal := parisCal(t)

	task := seedTask(cal, 1, 9, 0, 2) // operator 9
	task.DurationHours = 7
	task.WorkOrderID = ptr(int64(5))
	task.OperationLineID = ptr(int64(51))

	rows := []scheduling.Row{{ID: 9, PlanningID: 1, Name: "Durand"}}
	backends := testutil.NewFakeBackends(rows, []*scheduling.Task{task})
	backends.Lines.LinesByOrder[5] = []*planner.OperationLine{
		{ID: 51, WorkOrderID: 5, Sequence: 10, WorkcenterID: ptr(int64(3)), RemainingHours: 10, TransitionHours: 2},
		{ID: 52, WorkOrderID: 5, Sequence: 20, WorkcenterID: ptr(int64(4)), RemainingHours: 6, OverlapPct: 50},
	}

	log := logger.Default()
	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	session, err := manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)

	propagator := planner.NewPropagator(backends, log, nil)
	summary, err := propagator.PropagateOperationTimes(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.OperationsRecomputed)
	assert.Equal(t, 1, summary.EmployeesAssigned)
	assert.Equal(t, 1, summary.DurationsUpdated)
	require.Len(t, backends.Lines.Updated, 2)

	first := backends.Lines.Updated[0]
	require.NotNil(t, first.Start)
	assert.True(t, first.Start.Equal(task.Start))
	require.NotNil(t, first.End)
	assert.True(t, first.End.Equal(task.Start.Add(10*time.Hour)), "first line ends after its remaining work")
	assert.Equal(t, 7.0, first.UnitDuration)
	require.NotNil(t, first.EmployeeID)
	assert.Equal(t, int64(9), *first.EmployeeID)

	// Second line: previous end + 2h transition, minus 50% of the
	// previous actual duration (10h) as raw overlap = end - 3h.
	second := backends.Lines.Updated[1]
	require.NotNil(t, second.Start)
	wantStart := first.End.Add(2 * time.Hour).Add(-5 * time.Hour)
	assert.True(t, second.Start.Equal(wantStart), "want %s, got %s", wantStart, second.Start)
	require.NotNil(t, second.End)
	assert.True(t, second.End.Equal(wantStart.Add(6*time.Hour)))
	assert.Nil(t, second.EmployeeID, "no task on the second line")
}

func TestPropagateOperationTimesSkipsUnplannedOrders(t *testing.T) {
	cal := parisCal(t)

	task := seedTask(cal, 1, 1, 0, 2) // no operation line binding
	backends := testutil.NewFakeBackends(twoRows(), []*scheduling.Task{task})

	log := logger.Default()
	manager, err := planner.NewManager(backends, testutil.SchedulingConfig(), log)
	require.NoError(t, err)
	session, err := manager.Select(context.Background(), "default", 1)
	require.NoError(t, err)

	propagator := planner.NewPropagator(backends, log, nil)
	summary, err := propagator.PropagateOperationTimes(context.Background(), session)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.OperationsRecomputed)
	assert.Empty(t, backends.Lines.Updated)
}
