// Package planner is the application layer of the task-planning engine:
// it owns the in-memory planning sessions, coordinates edits against the
// collision engine, projects the plan for clients, and propagates
// computed start times back into the upstream work-order model.
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/smilemakc/atelier/internal/domain/scheduling"
)

var (
	// ErrNoPlanningSelected is returned when an operation requires a
	// selected planning and none is loaded for the session.
	ErrNoPlanningSelected = errors.New("no planning selected")
)

// User-facing rejection messages, rendered verbatim in edit responses.
const (
	MsgTaskNotFound   = "task not found"
	MsgRowNotFound    = "row not found"
	MsgNotEnoughSpace = "not enough space"
	MsgPersistFailed  = "database update failed"
	MsgInvalidRequest = "invalid request"
)

// PlanningLoader reads a planning and its satellite records from the
// upstream store, already converted to display-local domain values.
type PlanningLoader interface {
	Find(ctx context.Context, id int64) (*scheduling.Planning, error)
	Rows(ctx context.Context, planning *scheduling.Planning) ([]scheduling.Row, error)
	Affairs(ctx context.Context, planningID int64) ([]scheduling.Affair, error)
	Closures(ctx context.Context, planningID int64) ([]scheduling.Closure, error)
	Tasks(ctx context.Context, planning *scheduling.Planning) ([]*scheduling.Task, error)
}

// TaskPersister commits one row's tasks to the upstream store in a
// single transaction.
type TaskPersister interface {
	PersistRow(ctx context.Context, displayType scheduling.DisplayType, tasks []*scheduling.Task) error
}

// Production is the propagator's view of an upstream production order.
type Production struct {
	ID           int64
	Name         string
	PlannedStart *time.Time
}

// OperationLine is the propagator's view of one upstream operation line.
// Start/End are display-local instants.
type OperationLine struct {
	ID           int64
	WorkOrderID  int64
	Name         string
	Sequence     int
	WorkcenterID *int64
	EmployeeID   *int64

	Start          *time.Time
	End            *time.Time
	RemainingHours float64
	UnitDuration   float64

	// Chaining rules against the preceding line.
	OverlapPct      float64
	TransitionHours float64
}

// ProductionStore is the upstream surface the production-date pass
// writes through.
type ProductionStore interface {
	FindProduction(ctx context.Context, id int64) (*Production, error)
	UpdatePlannedStart(ctx context.Context, id int64, start time.Time) error
	UpdatePrimaryWorkOrder(ctx context.Context, productionID, workcenterID int64, durationHours float64) error
}

// OperationLineStore is the upstream surface the operation-time pass
// writes through.
type OperationLineStore interface {
	ListLines(ctx context.Context, workOrderID int64) ([]*OperationLine, error)
	UpdateLine(ctx context.Context, line *OperationLine) error
}

// AvailabilityCalendar is the external capability answering when a block
// of work ends on a workcenter's working calendar. The engine never
// reimplements the calendar itself.
type AvailabilityCalendar interface {
	EarliestEnd(ctx context.Context, workcenterID int64, durationHours float64, start time.Time) (time.Time, error)
}

// Backends resolves the per-database adapters behind a selected upstream
// database id.
type Backends interface {
	Loader(databaseID string) (PlanningLoader, error)
	Persister(databaseID string) (TaskPersister, error)
	Productions(databaseID string) (ProductionStore, error)
	OperationLines(databaseID string) (OperationLineStore, error)
	Availability(databaseID string) (AvailabilityCalendar, error)
}

// EditLocker serializes edits on one planning across service replicas.
// The zero implementation (nil) relies on the in-process lock alone.
type EditLocker interface {
	Acquire(ctx context.Context, databaseID string, planningID int64) (release func(), err error)
}
