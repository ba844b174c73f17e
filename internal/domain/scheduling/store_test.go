package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutSortsByStartThenID(t *testing.T) {
	cal := testCalendar()
	s := NewStore(1)
	s.Lock()
	defer s.Unlock()

	s.Put(taskAt(cal, 3, 1, 8, 2))
	s.Put(taskAt(cal, 1, 1, 0, 2))
	s.Put(taskAt(cal, 2, 1, 0, 2)) // same start as 1, higher id

	row := s.ByRow(1)
	require.Len(t, row, 3)
	assert.Equal(t, int64(1), row[0].ID)
	assert.Equal(t, int64(2), row[1].ID)
	assert.Equal(t, int64(3), row[2].ID)
}

func TestStorePutMovesBetweenRows(t *testing.T) {
	cal := testCalendar()
	s := NewStore(1)
	s.Lock()
	defer s.Unlock()

	task := taskAt(cal, 1, 1, 0, 2)
	s.Put(task)
	require.Len(t, s.ByRow(1), 1)

	task.RowID = 2
	s.Put(task)
	assert.Empty(t, s.ByRow(1))
	require.Len(t, s.ByRow(2), 1)
	assert.Same(t, task, s.ByID(1))
}

func TestStorePutReplacesAndResorts(t *testing.T) {
	cal := testCalendar()
	s := NewStore(1)
	s.Lock()
	defer s.Unlock()

	a := taskAt(cal, 1, 1, 0, 2)
	b := taskAt(cal, 2, 1, 4, 2)
	s.Put(a)
	s.Put(b)

	a.SetSlot(cal, 8, 0)
	s.Put(a)

	row := s.ByRow(1)
	require.Len(t, row, 2)
	assert.Equal(t, int64(2), row[0].ID)
	assert.Equal(t, int64(1), row[1].ID)
}

func TestStoreDelete(t *testing.T) {
	cal := testCalendar()
	s := NewStore(1)
	s.Lock()
	defer s.Unlock()

	s.Put(taskAt(cal, 1, 1, 0, 2))
	s.Delete(1)
	assert.Nil(t, s.ByID(1))
	assert.Empty(t, s.ByRow(1))

	s.Delete(42) // deleting an absent id is a no-op
}

func TestStoreResetReplacesEverything(t *testing.T) {
	cal := testCalendar()
	s := NewStore(1)
	s.Lock()
	defer s.Unlock()

	s.Put(taskAt(cal, 1, 1, 0, 2))
	s.Reset([]*Task{taskAt(cal, 7, 2, 2, 2), taskAt(cal, 8, 2, 0, 2)})

	assert.Nil(t, s.ByID(1))
	row := s.ByRow(2)
	require.Len(t, row, 2)
	assert.Equal(t, int64(8), row[0].ID)

	all := s.All()
	require.Len(t, all, 2)
}
