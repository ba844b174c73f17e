package scheduling

import "sort"

// KeyboardChainCap bounds the keyboard push chain walk (spec §4.3/§5).
const KeyboardChainCap = 20

// RowSweepCap bounds resolve_all_collisions iterations (spec §4.3/§5).
const RowSweepCap = 50

// Direction is a keyboard nudge direction.
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
	DirUp    Direction = "up"
	DirDown  Direction = "down"
)

// Overlaps reports whether two slot intervals [startA, startA+durA) and
// [startB, startB+durB) intersect.
func Overlaps(startA Slot, durA int, startB Slot, durB int) bool {
	endA := startA + Slot(durA)
	endB := startB + Slot(durB)
	return !(endA <= startB || endB <= startA)
}

// FirstCollision returns the first task on row (in ascending start order)
// other than excl that overlaps [start, start+dur), or nil if none.
func FirstCollision(cal Calendar, row []*Task, start Slot, dur int, excl int64) *Task {
	for _, t := range row {
		if t.ID == excl {
			continue
		}
		if Overlaps(start, dur, t.StartSlot(cal), t.DurationSlots(cal)) {
			return t
		}
	}
	return nil
}

// AllCollisions returns every task on row overlapping [start, start+dur),
// excluding excl, in ascending start order.
func AllCollisions(cal Calendar, row []*Task, start Slot, dur int, excl int64) []*Task {
	var out []*Task
	for _, t := range row {
		if t.ID == excl {
			continue
		}
		if Overlaps(start, dur, t.StartSlot(cal), t.DurationSlots(cal)) {
			out = append(out, t)
		}
	}
	return out
}

// PushPlan is a proposed new (start, duration) for a task, produced by
// the collision algorithms before they are committed to the Store.
type PushPlan struct {
	Task  *Task
	Start Slot
}

// PushRightCascade computes the placements required to make room for a
// target placement (row, start, dur) excluding excl, per spec §4.3: the
// tasks directly in the way are pushed to start right after the target,
// back to back in their original start order; any task that those pushes
// would newly collide with joins a cascade set and is processed the same
// way, repeating until the cascade set is empty or a placement would
// exceed horizon. Returns the full set of moves on success, or ok=false
// if the cascade cannot fit within horizon (nothing is mutated either
// way — this only plans).
func PushRightCascade(cal Calendar, row []*Task, start Slot, dur int, excl int64, horizon int) ([]PushPlan, bool) {
	toPush := AllCollisions(cal, row, start, dur, excl)
	if len(toPush) == 0 {
		return nil, true
	}
	sort.Slice(toPush, func(i, j int) bool { return taskLess(toPush[i], toPush[j]) })

	planned := make(map[int64]Slot)
	order := make([]*Task, 0, len(toPush))

	inSet := make(map[int64]bool, len(toPush))
	for _, t := range toPush {
		inSet[t.ID] = true
	}

	cursor := start + Slot(dur)
	pending := toPush
	for len(pending) > 0 {
		var cascade []*Task
		for _, t := range pending {
			newStart := cursor
			if int(newStart)+t.DurationSlots(cal) > horizon {
				return nil, false
			}
			planned[t.ID] = newStart
			order = append(order, t)
			cursor = newStart + Slot(t.DurationSlots(cal))

			// anything on the row, not excl, not already in the set and
			// not already planned, that the new placement would now
			// overlap joins the cascade.
			for _, other := range row {
				if other.ID == excl || other.ID == t.ID || inSet[other.ID] {
					continue
				}
				if _, already := planned[other.ID]; already {
					continue
				}
				if Overlaps(newStart, t.DurationSlots(cal), other.StartSlot(cal), other.DurationSlots(cal)) {
					cascade = append(cascade, other)
					inSet[other.ID] = true
				}
			}
		}
		pending = cascade
	}

	out := make([]PushPlan, 0, len(order))
	for _, t := range order {
		out = append(out, PushPlan{Task: t, Start: planned[t.ID]})
	}
	return out, true
}

// PushChain computes a keyboard push-left/push-right chain starting at
// an initiating task moving by one slot in dir: walk at most chainCap
// tasks (KeyboardChainCap when <= 0), each step computing the new
// boundary and extending the chain if that boundary collides with
// another task. Ok is false if the initiating move would leave the
// horizon, or the chain exceeds its cap without resolving.
func PushChain(cal Calendar, row []*Task, initiating *Task, dir Direction, horizon, chainCap int) ([]PushPlan, bool) {
	if chainCap <= 0 {
		chainCap = KeyboardChainCap
	}
	dur := initiating.DurationSlots(cal)
	start := initiating.StartSlot(cal)

	var newStart Slot
	switch dir {
	case DirLeft:
		newStart = start - 1
		if newStart < 0 {
			return nil, false
		}
	case DirRight:
		newStart = start + 1
		if int(newStart)+dur > horizon {
			return nil, false
		}
	default:
		return nil, false
	}

	chain := []PushPlan{{Task: initiating, Start: newStart}}
	inChain := map[int64]bool{initiating.ID: true}

	curTask := initiating
	curStart := newStart
	for step := 0; step < chainCap; step++ {
		next := firstCollisionExcluding(cal, row, curStart, curTask.DurationSlots(cal), inChain, curTask.ID)
		if next == nil {
			return chain, true
		}

		var boundary Slot
		nextDur := next.DurationSlots(cal)
		if dir == DirLeft {
			boundary = curStart - Slot(nextDur)
			if boundary < 0 {
				return nil, false
			}
		} else {
			boundary = curStart + Slot(curTask.DurationSlots(cal))
			if int(boundary)+nextDur > horizon {
				return nil, false
			}
		}

		chain = append(chain, PushPlan{Task: next, Start: boundary})
		inChain[next.ID] = true
		curTask = next
		curStart = boundary
	}
	return nil, false
}

func firstCollisionExcluding(cal Calendar, row []*Task, start Slot, dur int, exclude map[int64]bool, selfID int64) *Task {
	for _, t := range row {
		if t.ID == selfID || exclude[t.ID] {
			continue
		}
		if Overlaps(start, dur, t.StartSlot(cal), t.DurationSlots(cal)) {
			return t
		}
	}
	return nil
}

// ResolveAllCollisions performs the row-sweep described in spec §4.3:
// sort by start, walk adjacent pairs, and on overlap move the right task
// to the left task's end; if that would exceed horizon, try moving the
// left task backward instead, clamping the right task to the horizon
// edge as a last resort. Restarts from the beginning after every change,
// hard-capped at sweepCap iterations (RowSweepCap when <= 0). Returns
// the resulting plan: one entry, with its final start, for every task
// that took part in a resolved overlap, including a task whose start did
// not move. ok is false when every one of the sweepCap iterations made a
// change, i.e. the row was not confirmed overlap-free within the cap.
func ResolveAllCollisions(cal Calendar, row []*Task, horizon, sweepCap int) ([]PushPlan, bool) {
	if sweepCap <= 0 {
		sweepCap = RowSweepCap
	}
	working := make([]*Task, len(row))
	copy(working, row)
	starts := make(map[int64]Slot, len(working))
	for _, t := range working {
		starts[t.ID] = t.StartSlot(cal)
	}

	changed := make(map[int64]bool)

	for iter := 0; iter < sweepCap; iter++ {
		sort.Slice(working, func(i, j int) bool {
			if starts[working[i].ID] != starts[working[j].ID] {
				return starts[working[i].ID] < starts[working[j].ID]
			}
			return working[i].ID < working[j].ID
		})

		mutated := false
		for i := 0; i+1 < len(working); i++ {
			left, right := working[i], working[i+1]
			leftStart, rightStart := starts[left.ID], starts[right.ID]
			leftDur, rightDur := left.DurationSlots(cal), right.DurationSlots(cal)
			if !Overlaps(leftStart, leftDur, rightStart, rightDur) {
				continue
			}

			leftEnd := leftStart + Slot(leftDur)
			if int(leftEnd)+rightDur <= horizon {
				starts[right.ID] = leftEnd
			} else {
				candidate := rightStart - Slot(leftDur)
				if candidate >= 0 {
					starts[left.ID] = candidate
				} else {
					starts[right.ID] = Slot(horizon - rightDur)
				}
			}
			changed[left.ID] = true
			changed[right.ID] = true
			mutated = true
			break
		}

		if !mutated {
			out := make([]PushPlan, 0, len(changed))
			for _, t := range working {
				if changed[t.ID] {
					out = append(out, PushPlan{Task: t, Start: starts[t.ID]})
				}
			}
			return out, true
		}
	}
	return nil, false
}
