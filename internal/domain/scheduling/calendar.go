package scheduling

import (
	"math"
	"time"
)

// DefaultHalfDayHours is the working-hour length of one half-day (H in
// spec terms): 3.5 hours, yielding a 7-hour working day.
const DefaultHalfDayHours = 3.5

// AM/PM anchor hours used when projecting a slot back to an instant. The
// legacy system used 14 or 15 inconsistently for the PM anchor; both map
// to the same slot under the "hour >= 12 => PM" rule, so 14:00 is picked
// here and documented rather than left ambiguous.
const (
	amHour = 8
	pmHour = 14
)

// MinHorizon and HorizonMargin are the defaults for I2.
const (
	MinHorizon    = 60
	HorizonMargin = 14
)

// Calendar is the pure, immutable mapping between instants and slots for
// one planning. It carries no mutable state and is safe for concurrent use.
type Calendar struct {
	StartDate    time.Time // truncated to the day, in display-local wall time
	HalfDayHours float64   // H
}

// NewCalendar builds a Calendar anchored at the day component of start.
func NewCalendar(start time.Time, halfDayHours float64) Calendar {
	if halfDayHours <= 0 {
		halfDayHours = DefaultHalfDayHours
	}
	y, m, d := start.Date()
	return Calendar{
		StartDate:    time.Date(y, m, d, 0, 0, 0, 0, start.Location()),
		HalfDayHours: halfDayHours,
	}
}

// SlotOf maps an instant to its half-day slot: slot 2d is the AM half of
// day d, slot 2d+1 is the PM half.
func (c Calendar) SlotOf(instant time.Time) Slot {
	y, m, d := instant.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, instant.Location())
	days := int(math.Round(day.Sub(c.StartDate).Hours() / 24))
	slot := 2 * days
	if instant.Hour() >= 12 {
		slot++
	}
	return Slot(slot)
}

// InstantOf maps a slot back to an instant: hour 8 for the AM half, hour
// 14 for the PM half, on the day planning_start_date + slot/2.
func (c Calendar) InstantOf(slot Slot) time.Time {
	days := int(slot) / 2
	day := c.StartDate.AddDate(0, 0, days)
	hour := amHour
	if int(slot)%2 != 0 {
		hour = pmHour
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, c.StartDate.Location())
}

// HoursToSlots converts a duration in hours to a slot count, rounding up.
func (c Calendar) HoursToSlots(hours float64) int {
	h := c.HalfDayHours
	if h <= 0 {
		h = DefaultHalfDayHours
	}
	return int(math.Ceil(hours / h))
}

// SlotsToHours converts a slot count back to hours.
func (c Calendar) SlotsToHours(slots int) float64 {
	h := c.HalfDayHours
	if h <= 0 {
		h = DefaultHalfDayHours
	}
	return float64(slots) * h
}

// HorizonConfig carries the configurable bounds of I2.
type HorizonConfig struct {
	MinHorizon int
	Margin     int
}

// DefaultHorizonConfig returns the spec's defaults (60, 14).
func DefaultHorizonConfig() HorizonConfig {
	return HorizonConfig{MinHorizon: MinHorizon, Margin: HorizonMargin}
}

// Horizon computes I2: max(min_horizon, 2*days_until_end_date,
// 2*(last_task_day - start_date + 1) + margin).
func Horizon(cal Calendar, endDate *time.Time, tasks []*Task, cfg HorizonConfig) int {
	if cfg.MinHorizon <= 0 {
		cfg.MinHorizon = MinHorizon
	}
	horizon := cfg.MinHorizon

	if endDate != nil {
		y, m, d := endDate.Date()
		end := time.Date(y, m, d, 0, 0, 0, 0, cal.StartDate.Location())
		days := int(math.Ceil(end.Sub(cal.StartDate).Hours() / 24))
		if candidate := 2 * days; candidate > horizon {
			horizon = candidate
		}
	}

	lastDay := -1
	for _, t := range tasks {
		endSlot := int(t.StartSlot(cal)) + t.DurationSlots(cal)
		lastTaskDay := (endSlot - 1) / 2
		if lastTaskDay > lastDay {
			lastDay = lastTaskDay
		}
	}
	if lastDay >= 0 {
		if candidate := 2*(lastDay+1) + cfg.Margin; candidate > horizon {
			horizon = candidate
		}
	}

	return horizon
}

// ClosureIndex precomputes a fast closed(row, slot) lookup from a flat
// Closure list. Closures are advisory: nothing in this package consults
// ClosureIndex to reject placement, only to annotate the read projection.
type ClosureIndex struct {
	global map[string]bool
	perRow map[int64]map[string]bool
}

// NewClosureIndex builds a ClosureIndex from a planning's closures.
func NewClosureIndex(closures []Closure) *ClosureIndex {
	idx := &ClosureIndex{
		global: make(map[string]bool),
		perRow: make(map[int64]map[string]bool),
	}
	for _, c := range closures {
		key := closureDateKey(c.Date)
		if c.RowID == nil {
			idx.global[key] = true
			continue
		}
		rows, ok := idx.perRow[*c.RowID]
		if !ok {
			rows = make(map[string]bool)
			idx.perRow[*c.RowID] = rows
		}
		rows[key] = true
	}
	return idx
}

func closureDateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// GlobalClosed reports whether the slot's day carries a row-less closure.
func (idx *ClosureIndex) GlobalClosed(cal Calendar, slot Slot) bool {
	return idx.global[closureDateKey(cal.InstantOf(slot))]
}

// Closed reports whether the given row is closed at slot under cal: true
// iff the closure set contains a record on that day that is either
// global or scoped to this row.
func (idx *ClosureIndex) Closed(cal Calendar, row int64, slot Slot) bool {
	key := closureDateKey(cal.InstantOf(slot))
	if idx.global[key] {
		return true
	}
	if rows, ok := idx.perRow[row]; ok && rows[key] {
		return true
	}
	return false
}
