package scheduling

import (
	"sort"
	"sync"
)

// Store is the in-memory authoritative task set for the currently
// selected planning. It is a single-writer resource: the Coordinator
// holds Lock() for the full mutate-then-persist critical section of an
// edit, while read-only projections take RLock(). Mutation methods below
// assume the caller already holds the write lock; they do not re-lock
// internally, so they can be called safely from within a held lock
// without deadlocking.
type Store struct {
	sync.RWMutex

	planningID int64
	byID       map[int64]*Task
	byRow      map[int64][]*Task
}

// NewStore creates an empty Store for the given planning id.
func NewStore(planningID int64) *Store {
	return &Store{
		planningID: planningID,
		byID:       make(map[int64]*Task),
		byRow:      make(map[int64][]*Task),
	}
}

// PlanningID returns the planning this store holds tasks for.
func (s *Store) PlanningID() int64 {
	return s.planningID
}

// ByID returns the task with the given id, or nil if absent. Caller must
// hold at least RLock.
func (s *Store) ByID(id int64) *Task {
	return s.byID[id]
}

// ByRow returns the tasks on the given row sorted by (start, id). The
// returned slice is the store's own backing slice and must not be
// mutated by the caller; callers needing to mutate should Clone tasks.
// Caller must hold at least RLock.
func (s *Store) ByRow(rowID int64) []*Task {
	return s.byRow[rowID]
}

// All returns every task in the store in ascending (start, id) order.
// Caller must hold at least RLock.
func (s *Store) All() []*Task {
	out := make([]*Task, 0, len(s.byID))
	for _, tasks := range s.byRow {
		out = append(out, tasks...)
	}
	sort.Slice(out, func(i, j int) bool { return taskLess(out[i], out[j]) })
	return out
}

// Put inserts or replaces a task, re-sorting its row's index. If the task
// already existed on a different row, it is removed from the old row
// first. Caller must hold the write lock.
func (s *Store) Put(t *Task) {
	if _, ok := s.byID[t.ID]; ok {
		// The stored value may be t itself with RowID already changed, so
		// the old row is found by scanning rather than by old.RowID.
		for rowID := range s.byRow {
			if rowID != t.RowID {
				s.removeFromRow(rowID, t.ID)
			}
		}
	}
	s.byID[t.ID] = t
	s.insertSorted(t)
}

// Delete removes a task by id. Caller must hold the write lock.
func (s *Store) Delete(id int64) {
	old, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	s.removeFromRow(old.RowID, id)
}

// Reset replaces the entire task set, used by bulk planning reload.
// Caller must hold the write lock.
func (s *Store) Reset(tasks []*Task) {
	s.byID = make(map[int64]*Task, len(tasks))
	s.byRow = make(map[int64][]*Task)
	for _, t := range tasks {
		s.byID[t.ID] = t
		s.insertSorted(t)
	}
}

func (s *Store) insertSorted(t *Task) {
	row := s.byRow[t.RowID]
	// remove any existing entry for this id on this row first (Put with
	// unchanged row goes through here)
	for i, existing := range row {
		if existing.ID == t.ID {
			row = append(row[:i], row[i+1:]...)
			break
		}
	}
	idx := sort.Search(len(row), func(i int) bool { return !taskLess(row[i], t) })
	row = append(row, nil)
	copy(row[idx+1:], row[idx:])
	row[idx] = t
	s.byRow[t.RowID] = row
}

func (s *Store) removeFromRow(rowID, taskID int64) {
	row := s.byRow[rowID]
	for i, t := range row {
		if t.ID == taskID {
			s.byRow[rowID] = append(row[:i], row[i+1:]...)
			return
		}
	}
}

func taskLess(a, b *Task) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}
