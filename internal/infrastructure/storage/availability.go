package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// WorkcenterCalendar answers "when does a block of work end" questions
// against the workcenter's resource calendar (its weekly attendance
// windows). It is the concrete side of the propagator's availability
// port; closed periods simply carry no attendance rows.
type WorkcenterCalendar struct {
	db bun.IDB
}

// NewWorkcenterCalendar creates a WorkcenterCalendar over db.
func NewWorkcenterCalendar(db bun.IDB) *WorkcenterCalendar {
	return &WorkcenterCalendar{db: db}
}

type attendanceWindow struct {
	Weekday  int     `bun:"weekday"`
	HourFrom float64 `bun:"hour_from"`
	HourTo   float64 `bun:"hour_to"`
}

// EarliestEnd returns the first instant at which durationHours of work
// started at start is complete on the workcenter's calendar. Workcenters
// without a calendar (or with an empty one) degrade to raw hour addition.
func (c *WorkcenterCalendar) EarliestEnd(ctx context.Context, workcenterID int64, durationHours float64, start time.Time) (time.Time, error) {
	if durationHours <= 0 {
		return start, nil
	}

	windows, err := c.windows(ctx, workcenterID)
	if err != nil {
		return time.Time{}, err
	}
	if len(windows) == 0 {
		return start.Add(time.Duration(durationHours * float64(time.Hour))), nil
	}

	byDay := make(map[int][]attendanceWindow)
	for _, w := range windows {
		byDay[w.Weekday] = append(byDay[w.Weekday], w)
	}
	for day := range byDay {
		sort.Slice(byDay[day], func(i, j int) bool { return byDay[day][i].HourFrom < byDay[day][j].HourFrom })
	}

	remaining := durationHours
	cursor := start
	// A year of empty days means the calendar is unusable; fall back to
	// raw addition rather than looping forever.
	for day := 0; day < 366; day++ {
		weekday := odooWeekday(cursor.Weekday())
		dayStart := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location())
		cursorHour := cursor.Sub(dayStart).Hours()

		for _, w := range byDay[weekday] {
			from := w.HourFrom
			if cursorHour > from {
				from = cursorHour
			}
			if from >= w.HourTo {
				continue
			}
			available := w.HourTo - from
			if available >= remaining {
				return dayStart.Add(time.Duration((from + remaining) * float64(time.Hour))), nil
			}
			remaining -= available
		}

		cursor = dayStart.AddDate(0, 0, 1)
	}
	return start.Add(time.Duration(durationHours * float64(time.Hour))), nil
}

// windows loads the attendance windows of the workcenter's calendar.
func (c *WorkcenterCalendar) windows(ctx context.Context, workcenterID int64) ([]attendanceWindow, error) {
	var out []attendanceWindow
	err := c.db.NewSelect().
		TableExpr("resource_calendar_attendance AS ca").
		ColumnExpr("CAST(ca.dayofweek AS integer) AS weekday").
		ColumnExpr("ca.hour_from").
		ColumnExpr("ca.hour_to").
		Join("JOIN mrp_workcenter AS mw ON mw.resource_calendar_id = ca.calendar_id").
		Where("mw.id = ?", workcenterID).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("load calendar for workcenter %d: %w", workcenterID, err)
	}
	return out, nil
}

// odooWeekday maps time.Weekday onto the attendance convention where
// 0 is Monday.
func odooWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}
