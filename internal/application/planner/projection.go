package planner

import (
	"fmt"
	"time"

	"github.com/smilemakc/atelier/internal/domain/scheduling"
)

// SlotHeader is one half-day cell of the slot axis.
type SlotHeader struct {
	Slot     int    `json:"slot"`
	Date     string `json:"date"` // "dd/mm"
	Period   string `json:"period"`
	DayName  string `json:"day_name"`
	Closed   bool   `json:"is_vacation"`
}

// SpanHeader is a grouping header (week or month) spanning consecutive
// slots.
type SpanHeader struct {
	Name      string `json:"name"`
	StartSlot int    `json:"start_slot"`
	Span      int    `json:"span"`
}

// DayHeader labels one day of the axis.
type DayHeader struct {
	Date      string `json:"date"`
	StartSlot int    `json:"start_slot"`
	DayName   string `json:"day_name"`
}

// RowView is one lane of the grid.
type RowView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AffairView is one affair with its display color.
type AffairView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TaskView carries a task's raw fields next to its derived slot
// coordinates.
type TaskView struct {
	ID            int64      `json:"id"`
	RowID         int64      `json:"operator_id"`
	AffairID      *int64     `json:"affaire_id,omitempty"`
	Name          string     `json:"name"`
	Start         string     `json:"start_date"`
	DurationHours float64    `json:"duration_hours"`
	StartSlot     int        `json:"start_slot"`
	DurationSlots int        `json:"duration"`
	OperationName string     `json:"operation_name,omitempty"`
	EmployeeLabel string     `json:"is_employe_ids_txt,omitempty"`
	RemainingQty  float64    `json:"product_qty,omitempty"`
	LastRequired  *time.Time `json:"is_derniere_date_prevue,omitempty"`
}

// PlanningView is the complete client projection of a planning.
type PlanningView struct {
	PlanningID   int64            `json:"planning_id"`
	PlanningName string           `json:"planning_name"`
	DisplayType  string           `json:"display_type"`
	StartDate    string           `json:"start_date"`
	Horizon      int              `json:"num_slots"`
	Rows         []RowView        `json:"operators"`
	Slots        []SlotHeader     `json:"time_slots"`
	Days         []DayHeader      `json:"days"`
	Weeks        []SpanHeader     `json:"weeks"`
	Months       []SpanHeader     `json:"months"`
	ClosedRow    map[int64][]bool `json:"row_closures"`
	Tasks        []TaskView       `json:"tasks"`
	Affairs      []AffairView     `json:"affairs"`
}

// Weekday display names; the planning UI is French like the shop floor
// using it.
var dayNames = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// BuildView composes the full planning projection: the slot axis with
// day/week/month groupings, the closure masks and the task list in slot
// coordinates.
func BuildView(s *PlanningSession) *PlanningView {
	s.RLock()
	defer s.RUnlock()

	cal := s.Calendar()
	horizon := s.Horizon()
	closures := s.Closures()

	view := &PlanningView{
		PlanningID:   s.Planning.ID,
		PlanningName: s.Planning.Name,
		DisplayType:  string(s.Planning.DisplayType),
		StartDate:    cal.StartDate.Format("2006-01-02"),
		Horizon:      horizon,
		ClosedRow:    make(map[int64][]bool, len(s.Rows())),
	}

	for _, r := range s.Rows() {
		view.Rows = append(view.Rows, RowView{ID: r.ID, Name: r.Name})
	}
	for _, a := range s.Affairs() {
		view.Affairs = append(view.Affairs, AffairView{ID: a.ID, Name: a.Name, Color: a.Color})
	}

	var currentWeek, currentMonth string
	for slot := 0; slot < horizon; slot++ {
		instant := cal.InstantOf(scheduling.Slot(slot))
		period := "AM"
		if slot%2 != 0 {
			period = "PM"
		}
		dayName := dayNames[instant.Weekday()]

		view.Slots = append(view.Slots, SlotHeader{
			Slot:    slot,
			Date:    instant.Format("02/01"),
			Period:  period,
			DayName: dayName,
			Closed:  closures.GlobalClosed(cal, scheduling.Slot(slot)),
		})

		if slot%2 == 0 {
			view.Days = append(view.Days, DayHeader{
				Date:      instant.Format("02/01"),
				StartSlot: slot,
				DayName:   dayName,
			})
		}

		isoYear, isoWeek := instant.ISOWeek()
		weekKey := fmt.Sprintf("S%02d/%d", isoWeek, isoYear)
		if weekKey != currentWeek {
			currentWeek = weekKey
			view.Weeks = append(view.Weeks, SpanHeader{Name: weekKey, StartSlot: slot})
		}
		view.Weeks[len(view.Weeks)-1].Span++

		monthKey := instant.Format("01/2006")
		if monthKey != currentMonth {
			currentMonth = monthKey
			view.Months = append(view.Months, SpanHeader{Name: monthKey, StartSlot: slot})
		}
		view.Months[len(view.Months)-1].Span++
	}

	for _, r := range s.Rows() {
		mask := make([]bool, horizon)
		for slot := 0; slot < horizon; slot++ {
			mask[slot] = closures.Closed(cal, r.ID, scheduling.Slot(slot))
		}
		view.ClosedRow[r.ID] = mask
	}

	for _, t := range s.Store().All() {
		view.Tasks = append(view.Tasks, taskView(cal, t))
	}

	return view
}

func taskView(cal scheduling.Calendar, t *scheduling.Task) TaskView {
	return TaskView{
		ID:            t.ID,
		RowID:         t.RowID,
		AffairID:      t.AffairID,
		Name:          t.Name,
		Start:         t.Start.Format("2006-01-02 15:04:05"),
		DurationHours: t.DurationHours,
		StartSlot:     int(t.StartSlot(cal)),
		DurationSlots: t.DurationSlots(cal),
		OperationName: t.OperationName,
		EmployeeLabel: t.EmployeeLabel,
		RemainingQty:  t.RemainingQty,
		LastRequired:  t.LastRequiredDate,
	}
}
