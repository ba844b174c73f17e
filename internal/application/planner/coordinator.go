package planner

import (
	"context"

	"github.com/smilemakc/atelier/internal/application/observer"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// EditResult is the payload of every edit operation. User-level
// rejections (collision, unknown task, failed persistence) are carried
// here with Success=false rather than as Go errors; only the HTTP layer
// above distinguishes infrastructure faults.
type EditResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`

	TaskID       int64 `json:"task_id,omitempty"`
	PrevRowID    int64 `json:"prev_operator_id,omitempty"`
	NewRowID     int64 `json:"new_operator_id,omitempty"`
	PrevSlot     int   `json:"prev_slot"`
	NewSlot      int   `json:"new_slot"`
	PrevDuration int   `json:"prev_duration"`
	NewDuration  int   `json:"new_duration"`
}

func reject(msg string) *EditResult {
	return &EditResult{Success: false, Error: msg}
}

// Coordinator validates and executes edit requests against a
// PlanningSession: it runs the collision engine, commits the whole
// affected row to the upstream store, and rolls the in-memory state
// back when persistence fails. Edits are all-or-nothing.
type Coordinator struct {
	cfg       config.SchedulingConfig
	logger    *logger.Logger
	observers *observer.Manager
	locker    EditLocker
}

// NewCoordinator creates a Coordinator. observers and locker may be nil.
func NewCoordinator(cfg config.SchedulingConfig, log *logger.Logger, observers *observer.Manager, locker EditLocker) *Coordinator {
	return &Coordinator{cfg: cfg, logger: log, observers: observers, locker: locker}
}

// snapshot captures clones of every task currently on the given rows so
// a failed edit can restore them exactly (rejection stability).
func snapshot(s *PlanningSession, rowIDs ...int64) []*scheduling.Task {
	seen := make(map[int64]bool, len(rowIDs))
	var out []*scheduling.Task
	for _, rowID := range rowIDs {
		if seen[rowID] {
			continue
		}
		seen[rowID] = true
		for _, t := range s.store.ByRow(rowID) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// restore puts a snapshot back into the store, overwriting anything the
// failed edit changed.
func restore(s *PlanningSession, snap []*scheduling.Task) {
	for _, t := range snap {
		s.store.Put(t)
	}
}

// applyPlans commits a set of planned starts to the store.
func applyPlans(s *PlanningSession, plans []scheduling.PushPlan) {
	for _, p := range plans {
		p.Task.SetSlot(s.cal, p.Start, 0)
		s.store.Put(p.Task)
	}
}

// lockEdit takes the cross-replica lock (when configured) and the
// session's exclusive lock, returning the combined release.
func (c *Coordinator) lockEdit(ctx context.Context, s *PlanningSession) (func(), error) {
	release := func() {}
	if c.locker != nil {
		var err error
		release, err = c.locker.Acquire(ctx, s.DatabaseID, s.Planning.ID)
		if err != nil {
			return nil, err
		}
	}
	s.Lock()
	return func() {
		s.Unlock()
		release()
	}, nil
}

func (c *Coordinator) notify(ctx context.Context, s *PlanningSession, eventType observer.EventType, res *EditResult) {
	if c.observers == nil {
		return
	}
	c.observers.Notify(ctx, observer.Event{
		Type:       eventType,
		DatabaseID: s.DatabaseID,
		PlanningID: s.Planning.ID,
		TaskID:     res.TaskID,
		RowID:      res.NewRowID,
		PrevRowID:  res.PrevRowID,
		PrevSlot:   res.PrevSlot,
		NewSlot:    res.NewSlot,
		Duration:   res.NewDuration,
	})
}

// Move places a task at (rowID, startSlot), pushing colliding tasks to
// the right. The entire target row is persisted in one transaction.
func (c *Coordinator) Move(ctx context.Context, s *PlanningSession, taskID, rowID int64, startSlot int) *EditResult {
	unlock, err := c.lockEdit(ctx, s)
	if err != nil {
		return reject(err.Error())
	}
	defer unlock()

	t := s.store.ByID(taskID)
	if t == nil {
		return reject(MsgTaskNotFound)
	}
	if !s.HasRow(rowID) {
		return reject(MsgRowNotFound)
	}

	horizon := s.Horizon()
	dur := t.DurationSlots(s.cal)
	if startSlot < 0 || startSlot+dur > horizon {
		return reject(MsgNotEnoughSpace)
	}

	res := &EditResult{
		TaskID:       taskID,
		PrevRowID:    t.RowID,
		NewRowID:     rowID,
		PrevSlot:     int(t.StartSlot(s.cal)),
		NewSlot:      startSlot,
		PrevDuration: dur,
		NewDuration:  dur,
	}

	plans, ok := scheduling.PushRightCascade(s.cal, s.store.ByRow(rowID), scheduling.Slot(startSlot), dur, t.ID, horizon)
	if !ok {
		return reject(MsgNotEnoughSpace)
	}

	snap := snapshot(s, t.RowID, rowID)
	rowChanged := t.RowID != rowID

	applyPlans(s, plans)
	t.RowID = rowID
	t.SetSlot(s.cal, scheduling.Slot(startSlot), 0)
	s.store.Put(t)

	// Residual collisions can only appear when the task switched rows.
	if rowChanged {
		if scheduling.FirstCollision(s.cal, s.store.ByRow(rowID), scheduling.Slot(startSlot), dur, t.ID) != nil {
			sweep, ok := scheduling.ResolveAllCollisions(s.cal, s.store.ByRow(rowID), horizon, c.cfg.RowSweepCap)
			if !ok {
				restore(s, snap)
				return reject(MsgNotEnoughSpace)
			}
			applyPlans(s, sweep)
		}
	}

	if err := s.persister.PersistRow(ctx, s.Planning.DisplayType, s.store.ByRow(rowID)); err != nil {
		restore(s, snap)
		c.logger.ErrorContext(ctx, "move persistence failed", "task_id", taskID, "error", err)
		return reject(MsgPersistFailed)
	}

	res.Success = true
	c.logger.InfoContext(ctx, "task moved",
		"task_id", taskID,
		"row_id", rowID,
		"prev_slot", res.PrevSlot,
		"new_slot", res.NewSlot,
		"pushed", len(plans),
	)
	c.notify(ctx, s, observer.EventTaskMoved, res)
	return res
}

// Resize sets a task's duration in slots, sweeping the row when the new
// length collides with a neighbour.
func (c *Coordinator) Resize(ctx context.Context, s *PlanningSession, taskID int64, durationSlots int) *EditResult {
	if durationSlots < 1 {
		return reject(MsgInvalidRequest)
	}

	unlock, err := c.lockEdit(ctx, s)
	if err != nil {
		return reject(err.Error())
	}
	defer unlock()

	t := s.store.ByID(taskID)
	if t == nil {
		return reject(MsgTaskNotFound)
	}

	horizon := s.Horizon()
	startSlot := int(t.StartSlot(s.cal))
	if startSlot+durationSlots > horizon {
		return reject(MsgNotEnoughSpace)
	}

	res := &EditResult{
		TaskID:       taskID,
		PrevRowID:    t.RowID,
		NewRowID:     t.RowID,
		PrevSlot:     startSlot,
		NewSlot:      startSlot,
		PrevDuration: t.DurationSlots(s.cal),
		NewDuration:  durationSlots,
	}

	snap := snapshot(s, t.RowID)

	t.SetSlot(s.cal, scheduling.Slot(startSlot), durationSlots)
	s.store.Put(t)

	if scheduling.FirstCollision(s.cal, s.store.ByRow(t.RowID), scheduling.Slot(startSlot), durationSlots, t.ID) != nil {
		sweep, ok := scheduling.ResolveAllCollisions(s.cal, s.store.ByRow(t.RowID), horizon, c.cfg.RowSweepCap)
		if !ok {
			restore(s, snap)
			return reject(MsgNotEnoughSpace)
		}
		applyPlans(s, sweep)
	}

	if err := s.persister.PersistRow(ctx, s.Planning.DisplayType, s.store.ByRow(t.RowID)); err != nil {
		restore(s, snap)
		c.logger.ErrorContext(ctx, "resize persistence failed", "task_id", taskID, "error", err)
		return reject(MsgPersistFailed)
	}

	res.Success = true
	c.logger.InfoContext(ctx, "task resized",
		"task_id", taskID,
		"prev_duration", res.PrevDuration,
		"new_duration", durationSlots,
	)
	c.notify(ctx, s, observer.EventTaskResized, res)
	return res
}

// ResizeAndMove applies a combined left-edge resize: new row, new start
// and new duration in one edit, sweeping both affected rows.
func (c *Coordinator) ResizeAndMove(ctx context.Context, s *PlanningSession, taskID, rowID int64, startSlot, durationSlots int) *EditResult {
	if durationSlots < 1 {
		return reject(MsgInvalidRequest)
	}

	unlock, err := c.lockEdit(ctx, s)
	if err != nil {
		return reject(err.Error())
	}
	defer unlock()

	t := s.store.ByID(taskID)
	if t == nil {
		return reject(MsgTaskNotFound)
	}
	if !s.HasRow(rowID) {
		return reject(MsgRowNotFound)
	}

	horizon := s.Horizon()
	if startSlot < 0 || startSlot+durationSlots > horizon {
		return reject(MsgNotEnoughSpace)
	}

	res := &EditResult{
		TaskID:       taskID,
		PrevRowID:    t.RowID,
		NewRowID:     rowID,
		PrevSlot:     int(t.StartSlot(s.cal)),
		NewSlot:      startSlot,
		PrevDuration: t.DurationSlots(s.cal),
		NewDuration:  durationSlots,
	}

	oldRow := t.RowID
	snap := snapshot(s, oldRow, rowID)

	t.RowID = rowID
	t.SetSlot(s.cal, scheduling.Slot(startSlot), durationSlots)
	s.store.Put(t)

	sweep, ok := scheduling.ResolveAllCollisions(s.cal, s.store.ByRow(rowID), horizon, c.cfg.RowSweepCap)
	if !ok {
		restore(s, snap)
		return reject(MsgNotEnoughSpace)
	}
	applyPlans(s, sweep)

	if oldRow != rowID {
		// Removing a task cannot create an overlap, but the sweep keeps
		// the old row consistent if it was already degenerate.
		if sweep, ok := scheduling.ResolveAllCollisions(s.cal, s.store.ByRow(oldRow), horizon, c.cfg.RowSweepCap); ok {
			applyPlans(s, sweep)
		}
	}

	if err := s.persister.PersistRow(ctx, s.Planning.DisplayType, s.store.ByRow(rowID)); err != nil {
		restore(s, snap)
		c.logger.ErrorContext(ctx, "resize-and-move persistence failed", "task_id", taskID, "error", err)
		return reject(MsgPersistFailed)
	}

	res.Success = true
	c.logger.InfoContext(ctx, "task resized and moved",
		"task_id", taskID,
		"row_id", rowID,
		"prev_slot", res.PrevSlot,
		"new_slot", startSlot,
		"prev_duration", res.PrevDuration,
		"new_duration", durationSlots,
	)
	c.notify(ctx, s, observer.EventTaskResized, res)
	return res
}

// KeyboardNudge moves a task by one slot (left/right) or one row
// (up/down). Horizontal nudges squeeze past neighbours with a bounded
// push chain; a chain that cannot resolve reports Blocked without
// touching any state.
func (c *Coordinator) KeyboardNudge(ctx context.Context, s *PlanningSession, taskID int64, dir scheduling.Direction) *EditResult {
	switch dir {
	case scheduling.DirLeft, scheduling.DirRight:
		return c.nudgeHorizontal(ctx, s, taskID, dir)
	case scheduling.DirUp, scheduling.DirDown:
		return c.nudgeVertical(ctx, s, taskID, dir)
	default:
		return reject(MsgInvalidRequest)
	}
}

func (c *Coordinator) nudgeHorizontal(ctx context.Context, s *PlanningSession, taskID int64, dir scheduling.Direction) *EditResult {
	unlock, err := c.lockEdit(ctx, s)
	if err != nil {
		return reject(err.Error())
	}
	defer unlock()

	t := s.store.ByID(taskID)
	if t == nil {
		return reject(MsgTaskNotFound)
	}

	horizon := s.Horizon()
	cur := int(t.StartSlot(s.cal))
	dur := t.DurationSlots(s.cal)

	candidate := cur - 1
	if dir == scheduling.DirRight {
		candidate = cur + 1
		if candidate > horizon-dur {
			candidate = horizon - dur
		}
	}
	if candidate < 0 {
		candidate = 0
	}

	res := &EditResult{
		TaskID:       taskID,
		PrevRowID:    t.RowID,
		NewRowID:     t.RowID,
		PrevSlot:     cur,
		NewSlot:      candidate,
		PrevDuration: dur,
		NewDuration:  dur,
	}

	if candidate == cur {
		// Clamped at the edge: a successful no-op.
		res.Success = true
		return res
	}

	snap := snapshot(s, t.RowID)

	if scheduling.FirstCollision(s.cal, s.store.ByRow(t.RowID), scheduling.Slot(candidate), dur, t.ID) != nil {
		plans, ok := scheduling.PushChain(s.cal, s.store.ByRow(t.RowID), t, dir, horizon, c.cfg.KeyboardChainCap)
		if !ok {
			res.Success = true
			res.Blocked = true
			res.NewSlot = cur
			return res
		}
		applyPlans(s, plans)
	} else {
		t.SetSlot(s.cal, scheduling.Slot(candidate), 0)
		s.store.Put(t)
	}

	if err := s.persister.PersistRow(ctx, s.Planning.DisplayType, s.store.ByRow(t.RowID)); err != nil {
		restore(s, snap)
		c.logger.ErrorContext(ctx, "nudge persistence failed", "task_id", taskID, "error", err)
		return reject(MsgPersistFailed)
	}

	res.Success = true
	c.logger.InfoContext(ctx, "task nudged",
		"task_id", taskID,
		"direction", string(dir),
		"prev_slot", cur,
		"new_slot", candidate,
	)
	c.notify(ctx, s, observer.EventTaskNudged, res)
	return res
}

func (c *Coordinator) nudgeVertical(ctx context.Context, s *PlanningSession, taskID int64, dir scheduling.Direction) *EditResult {
	unlock, err := c.lockEdit(ctx, s)
	if err != nil {
		return reject(err.Error())
	}
	defer unlock()

	t := s.store.ByID(taskID)
	if t == nil {
		return reject(MsgTaskNotFound)
	}

	idx := s.rowIndex(t.RowID)
	if idx < 0 {
		return reject(MsgRowNotFound)
	}

	target := idx - 1
	if dir == scheduling.DirDown {
		target = idx + 1
	}

	cur := int(t.StartSlot(s.cal))
	dur := t.DurationSlots(s.cal)

	res := &EditResult{
		TaskID:       taskID,
		PrevRowID:    t.RowID,
		NewRowID:     t.RowID,
		PrevSlot:     cur,
		NewSlot:      cur,
		PrevDuration: dur,
		NewDuration:  dur,
	}

	if target < 0 || target >= len(s.rows) {
		// First or last row: a successful no-op.
		res.Success = true
		return res
	}
	newRow := s.rows[target].ID
	res.NewRowID = newRow

	horizon := s.Horizon()
	plans, ok := scheduling.PushRightCascade(s.cal, s.store.ByRow(newRow), scheduling.Slot(cur), dur, t.ID, horizon)
	if !ok {
		return reject(MsgNotEnoughSpace)
	}

	snap := snapshot(s, t.RowID, newRow)

	applyPlans(s, plans)
	t.RowID = newRow
	s.store.Put(t)

	if err := s.persister.PersistRow(ctx, s.Planning.DisplayType, s.store.ByRow(newRow)); err != nil {
		restore(s, snap)
		c.logger.ErrorContext(ctx, "nudge persistence failed", "task_id", taskID, "error", err)
		return reject(MsgPersistFailed)
	}

	res.Success = true
	c.logger.InfoContext(ctx, "task nudged",
		"task_id", taskID,
		"direction", string(dir),
		"prev_row", res.PrevRowID,
		"new_row", newRow,
	)
	c.notify(ctx, s, observer.EventTaskNudged, res)
	return res
}
