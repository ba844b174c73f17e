package planner

import (
	"time"

	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
)

// PlanningSession is one loaded planning: the authoritative in-memory
// task set plus everything needed to edit and project it. A session is
// a single-writer resource; every edit holds the store's write lock for
// its full mutate-then-persist critical section, projections hold the
// read lock.
type PlanningSession struct {
	DatabaseID string
	Planning   *scheduling.Planning

	cal      scheduling.Calendar
	rows     []scheduling.Row
	affairs  []scheduling.Affair
	closures *scheduling.ClosureIndex
	store    *scheduling.Store

	horizonCfg scheduling.HorizonConfig
	persister  TaskPersister
}

// Lock acquires the session's exclusive edit lock.
func (s *PlanningSession) Lock() { s.store.Lock() }

// Unlock releases the exclusive edit lock.
func (s *PlanningSession) Unlock() { s.store.Unlock() }

// RLock acquires the shared projection lock.
func (s *PlanningSession) RLock() { s.store.RLock() }

// RUnlock releases the shared projection lock.
func (s *PlanningSession) RUnlock() { s.store.RUnlock() }

// Calendar returns the session's slot calendar. The calendar stays fixed
// between task loads; a task reload re-anchors it on the reloaded tasks.
func (s *PlanningSession) Calendar() scheduling.Calendar { return s.cal }

// Store returns the session's task store. Callers must hold the
// appropriate session lock while touching it.
func (s *PlanningSession) Store() *scheduling.Store { return s.store }

// Rows returns the rows in display order. Caller must hold a lock.
func (s *PlanningSession) Rows() []scheduling.Row { return s.rows }

// Affairs returns the planning's affairs. Caller must hold a lock.
func (s *PlanningSession) Affairs() []scheduling.Affair { return s.affairs }

// Closures returns the closure index. Caller must hold a lock.
func (s *PlanningSession) Closures() *scheduling.ClosureIndex { return s.closures }

// Horizon computes the current slot-axis bound from the planning end
// date and the last task (I2). Caller must hold a lock.
func (s *PlanningSession) Horizon() int {
	return scheduling.Horizon(s.cal, s.Planning.EndDate, s.store.All(), s.horizonCfg)
}

// HasRow reports whether the given row id belongs to the planning.
// Caller must hold a lock.
func (s *PlanningSession) HasRow(rowID int64) bool {
	for _, r := range s.rows {
		if r.ID == rowID {
			return true
		}
	}
	return false
}

// rowIndex returns the position of rowID in display order, or -1.
func (s *PlanningSession) rowIndex(rowID int64) int {
	for i, r := range s.rows {
		if r.ID == rowID {
			return i
		}
	}
	return -1
}

// planningStartDate picks the calendar anchor: the earliest task's day,
// or today when the planning is empty.
func planningStartDate(tasks []*scheduling.Task, loc *time.Location) time.Time {
	var earliest time.Time
	for _, t := range tasks {
		if earliest.IsZero() || t.Start.Before(earliest) {
			earliest = t.Start
		}
	}
	if earliest.IsZero() {
		earliest = time.Now().In(loc)
	}
	y, m, d := earliest.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// newSession assembles a PlanningSession from freshly loaded records.
func newSession(databaseID string, planning *scheduling.Planning, rows []scheduling.Row,
	affairs []scheduling.Affair, closures []scheduling.Closure, tasks []*scheduling.Task,
	cfg config.SchedulingConfig, loc *time.Location, persister TaskPersister) *PlanningSession {

	cal := scheduling.NewCalendar(planningStartDate(tasks, loc), cfg.HalfDayHours)
	store := scheduling.NewStore(planning.ID)
	store.Reset(tasks)

	return &PlanningSession{
		DatabaseID: databaseID,
		Planning:   planning,
		cal:        cal,
		rows:       rows,
		affairs:    affairs,
		closures:   scheduling.NewClosureIndex(closures),
		store:      store,
		horizonCfg: scheduling.HorizonConfig{MinHorizon: cfg.MinHorizon, Margin: cfg.HorizonMargin},
		persister:  persister,
	}
}
