// Package scheduling implements the half-day slot planning engine: the
// calendar, the in-memory task store and the collision/cascade algorithms
// that keep a row free of overlaps. It has no I/O dependency; everything
// here is pure data and pure functions over that data.
package scheduling

import "time"

// Slot is a non-negative half-day index anchored at a planning's start date.
// Slot 2d is the AM half of day d; slot 2d+1 is the PM half.
type Slot int

// DisplayType selects what a planning's rows represent.
type DisplayType string

const (
	DisplayOperatorRows   DisplayType = "operator"
	DisplayWorkcenterRows DisplayType = "workcenter"
)

// Planning groups the rows, tasks, affairs and closures the engine edits
// as one atomic unit. Only one planning is held in memory at a time per
// Store; switching plannings replaces the store wholesale.
type Planning struct {
	ID          int64
	Name        string
	DisplayType DisplayType
	EndDate     *time.Time
	Filter      string
	Ready       bool
}

// Row is one operator or workcenter lane. All tasks reference exactly one
// row id of the type declared by the planning's DisplayType.
type Row struct {
	ID         int64
	PlanningID int64
	Name       string
}

// Affair tints tasks for visual grouping. The engine treats Color as an
// opaque string; it never interprets it.
type Affair struct {
	ID         int64
	PlanningID int64
	Name       string
	Color      string
}

// Closure marks a date (optionally scoped to one row) as advisory
// unavailable. Closures never block placement; see ClosureIndex.Closed.
type Closure struct {
	ID         int64
	PlanningID int64
	Date       time.Time // truncated to the day
	RowID      *int64    // nil means "applies to every row"
}

// Task is one scheduled block. Start is naive local time at minute
// precision; the slot/duration projections are derived via a Calendar,
// never stored.
type Task struct {
	ID            int64
	PlanningID    int64
	RowID         int64
	AffairID      *int64
	Name          string
	Start         time.Time
	DurationHours float64

	// Upstream back-pointers, optional. Populated by the loader, consumed
	// by the operation propagator.
	ProductionID     *int64
	WorkOrderID      *int64
	OperationLineID  *int64
	RemainingQty     float64
	LastRequiredDate *time.Time
	OperationName    string
	EmployeeLabel    string
}

// Clone returns a deep-enough copy safe to mutate independently of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.AffairID != nil {
		v := *t.AffairID
		c.AffairID = &v
	}
	if t.ProductionID != nil {
		v := *t.ProductionID
		c.ProductionID = &v
	}
	if t.WorkOrderID != nil {
		v := *t.WorkOrderID
		c.WorkOrderID = &v
	}
	if t.OperationLineID != nil {
		v := *t.OperationLineID
		c.OperationLineID = &v
	}
	if t.LastRequiredDate != nil {
		v := *t.LastRequiredDate
		c.LastRequiredDate = &v
	}
	return &c
}

// StartSlot returns the task's start slot under cal.
func (t *Task) StartSlot(cal Calendar) Slot {
	return cal.SlotOf(t.Start)
}

// DurationSlots returns the task's duration in slots under cal (I3: >= 1).
func (t *Task) DurationSlots(cal Calendar) int {
	return cal.HoursToSlots(t.DurationHours)
}

// EndSlot returns the exclusive end slot under cal.
func (t *Task) EndSlot(cal Calendar) Slot {
	return t.StartSlot(cal) + Slot(t.DurationSlots(cal))
}

// SetSlot rewrites Start (and, if durSlots > 0, DurationHours) from slot
// coordinates, the inverse of StartSlot/DurationSlots.
func (t *Task) SetSlot(cal Calendar, start Slot, durSlots int) {
	t.Start = cal.InstantOf(start)
	if durSlots > 0 {
		t.DurationHours = cal.SlotsToHours(durSlots)
	}
}
