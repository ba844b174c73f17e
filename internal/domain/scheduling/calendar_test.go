package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestCalendarSlotOfAndInstantOf(t *testing.T) {
	loc := mustLoc(t, "Europe/Paris")
	start := time.Date(2025, 8, 11, 0, 0, 0, 0, loc) // Monday
	cal := NewCalendar(start, DefaultHalfDayHours)

	am := time.Date(2025, 8, 11, 9, 0, 0, 0, loc)
	require.Equal(t, Slot(0), cal.SlotOf(am))

	pm := time.Date(2025, 8, 11, 14, 30, 0, 0, loc)
	require.Equal(t, Slot(1), cal.SlotOf(pm))

	nextDayAM := time.Date(2025, 8, 12, 8, 0, 0, 0, loc)
	require.Equal(t, Slot(2), cal.SlotOf(nextDayAM))

	require.Equal(t, 8, cal.InstantOf(Slot(0)).Hour())
	require.Equal(t, 14, cal.InstantOf(Slot(1)).Hour())
	require.Equal(t, 11, cal.InstantOf(Slot(0)).Day())
	require.Equal(t, 12, cal.InstantOf(Slot(2)).Day())
}

// P6: slot_of(instant_of(s)) = s for all s in [0, horizon).
func TestCalendarSlotRoundTrip(t *testing.T) {
	loc := mustLoc(t, "Europe/Paris")
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, loc), DefaultHalfDayHours)

	for s := 0; s < 60; s++ {
		instant := cal.InstantOf(Slot(s))
		require.Equal(t, Slot(s), cal.SlotOf(instant), "slot %d", s)
	}
}

// P6: hours_to_slots(slots_to_hours(s)) = s.
func TestCalendarHoursSlotsRoundTrip(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), DefaultHalfDayHours)
	for s := 1; s <= 20; s++ {
		hours := cal.SlotsToHours(s)
		require.Equal(t, s, cal.HoursToSlots(hours), "slots %d", s)
	}
}

func TestCalendarHoursToSlotsRoundsUp(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), 3.5)
	require.Equal(t, 2, cal.HoursToSlots(6)) // 6/3.5 = 1.71 -> 2
	require.Equal(t, 1, cal.HoursToSlots(3.5))
	require.Equal(t, 1, cal.HoursToSlots(0.1))
}

func TestHorizonDefaults(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), DefaultHalfDayHours)
	h := Horizon(cal, nil, nil, DefaultHorizonConfig())
	require.Equal(t, MinHorizon, h)
}

func TestHorizonFromEndDate(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), DefaultHalfDayHours)
	end := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC) // 30 days out
	h := Horizon(cal, &end, nil, DefaultHorizonConfig())
	require.Equal(t, 60, h) // 2*30 = 60, ties with min_horizon
}

func TestHorizonFromLastTask(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), DefaultHalfDayHours)
	task := &Task{ID: 1, RowID: 1, Start: cal.InstantOf(Slot(70)), DurationHours: cal.SlotsToHours(2)}
	h := Horizon(cal, nil, []*Task{task}, DefaultHorizonConfig())
	// last task occupies slots 70-71 -> last day = 71/2 = 35; 2*(35+1)+14 = 86
	require.Equal(t, 86, h)
}

func TestClosureIndexGlobalAndPerRow(t *testing.T) {
	cal := NewCalendar(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), DefaultHalfDayHours)
	rowID := int64(7)
	closures := []Closure{
		{ID: 1, Date: time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)}, // global
		{ID: 2, Date: time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), RowID: &rowID},
	}
	idx := NewClosureIndex(closures)

	globalSlot := cal.SlotOf(time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC))
	require.True(t, idx.Closed(cal, rowID, globalSlot))
	require.True(t, idx.Closed(cal, int64(99), globalSlot))

	rowSlot := cal.SlotOf(time.Date(2025, 8, 18, 9, 0, 0, 0, time.UTC))
	require.True(t, idx.Closed(cal, rowID, rowSlot))
	require.False(t, idx.Closed(cal, int64(99), rowSlot))

	openSlot := cal.SlotOf(time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC))
	require.False(t, idx.Closed(cal, rowID, openSlot))
}
