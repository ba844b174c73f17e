package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/smilemakc/atelier/internal/application/observer"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// Propagator pushes the engine's computed start times back into the
// upstream production and work-order model. Both passes are best-effort:
// per-record failures are logged and skipped, because upstream writes
// can fail for reasons orthogonal to scheduling (locks, permissions).
type Propagator struct {
	backends  Backends
	logger    *logger.Logger
	observers *observer.Manager
}

// NewPropagator creates a Propagator. observers may be nil.
func NewPropagator(backends Backends, log *logger.Logger, observers *observer.Manager) *Propagator {
	return &Propagator{backends: backends, logger: log, observers: observers}
}

// ProductionSummary reports one production-date propagation run.
type ProductionSummary struct {
	ProductionsUpdated int `json:"productions_updated"`
	WorkOrdersUpdated  int `json:"work_orders_updated"`
	Skipped            int `json:"skipped"`
}

// OperationSummary reports one operation-time propagation run.
type OperationSummary struct {
	OperationsRecomputed int `json:"operations_recomputed"`
	EmployeesAssigned    int `json:"employees_assigned"`
	DurationsUpdated     int `json:"durations_updated"`
	Skipped              int `json:"skipped"`
}

// taskSnapshot is the propagator's read of the store, taken under the
// read lock so the upstream writes happen without holding it.
type taskSnapshot struct {
	displayType scheduling.DisplayType
	tasks       []*scheduling.Task
}

func snapshotTasks(s *PlanningSession) taskSnapshot {
	s.RLock()
	defer s.RUnlock()

	all := s.store.All()
	tasks := make([]*scheduling.Task, 0, len(all))
	for _, t := range all {
		tasks = append(tasks, t.Clone())
	}
	return taskSnapshot{displayType: s.Planning.DisplayType, tasks: tasks}
}

// PropagateProductionStarts aligns each production's planned start date
// with its earliest task. On workcenter plannings the earliest task's
// workcenter and duration are also bound onto the production's primary
// work order.
func (p *Propagator) PropagateProductionStarts(ctx context.Context, s *PlanningSession) (*ProductionSummary, error) {
	productions, err := p.backends.Productions(s.DatabaseID)
	if err != nil {
		return nil, err
	}

	snap := snapshotTasks(s)

	// Earliest task per production.
	earliest := make(map[int64]*scheduling.Task)
	for _, t := range snap.tasks {
		if t.ProductionID == nil {
			continue
		}
		id := *t.ProductionID
		if cur, ok := earliest[id]; !ok || t.Start.Before(cur.Start) {
			earliest[id] = t
		}
	}

	summary := &ProductionSummary{}
	for productionID, task := range earliest {
		production, err := productions.FindProduction(ctx, productionID)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping production", "production_id", productionID, "error", err)
			summary.Skipped++
			continue
		}

		// Shifting by (earliest task - current planned start) lands the
		// planned start exactly on the earliest task.
		newStart := task.Start
		if production.PlannedStart == nil || !production.PlannedStart.Equal(newStart) {
			if err := productions.UpdatePlannedStart(ctx, productionID, newStart); err != nil {
				p.logger.WarnContext(ctx, "failed to update production start", "production_id", productionID, "error", err)
				summary.Skipped++
				continue
			}
			summary.ProductionsUpdated++
		}

		if snap.displayType == scheduling.DisplayWorkcenterRows {
			if err := productions.UpdatePrimaryWorkOrder(ctx, productionID, task.RowID, task.DurationHours); err != nil {
				p.logger.WarnContext(ctx, "failed to update work order", "production_id", productionID, "error", err)
				summary.Skipped++
				continue
			}
			summary.WorkOrdersUpdated++
		}
	}

	p.logger.InfoContext(ctx, "production start dates propagated",
		"planning_id", s.Planning.ID,
		"productions_updated", summary.ProductionsUpdated,
		"work_orders_updated", summary.WorkOrdersUpdated,
		"skipped", summary.Skipped,
	)
	p.notifyDone(ctx, s, fmt.Sprintf("productions updated: %d", summary.ProductionsUpdated))
	return summary, nil
}

// PropagateOperationTimes rewrites the operation lines of every work
// order touched by the plan: the first planned line takes its task's
// start, each following line starts after its predecessor's transition
// time minus the configured overlap, and every end is recomputed on the
// workcenter's availability calendar.
func (p *Propagator) PropagateOperationTimes(ctx context.Context, s *PlanningSession) (*OperationSummary, error) {
	lines, err := p.backends.OperationLines(s.DatabaseID)
	if err != nil {
		return nil, err
	}
	availability, err := p.backends.Availability(s.DatabaseID)
	if err != nil {
		return nil, err
	}

	snap := snapshotTasks(s)

	// Tasks indexed by operation line, grouped by work order.
	taskByLine := make(map[int64]*scheduling.Task)
	workOrders := make(map[int64]bool)
	for _, t := range snap.tasks {
		if t.OperationLineID == nil || t.WorkOrderID == nil {
			continue
		}
		if cur, ok := taskByLine[*t.OperationLineID]; !ok || t.Start.Before(cur.Start) {
			taskByLine[*t.OperationLineID] = t
		}
		workOrders[*t.WorkOrderID] = true
	}

	orderIDs := make([]int64, 0, len(workOrders))
	for id := range workOrders {
		orderIDs = append(orderIDs, id)
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })

	summary := &OperationSummary{}
	for _, workOrderID := range orderIDs {
		if err := p.propagateWorkOrder(ctx, lines, availability, taskByLine, snap.displayType, workOrderID, summary); err != nil {
			p.logger.WarnContext(ctx, "skipping work order", "work_order_id", workOrderID, "error", err)
			summary.Skipped++
		}
	}

	p.logger.InfoContext(ctx, "operation start times propagated",
		"planning_id", s.Planning.ID,
		"operations_recomputed", summary.OperationsRecomputed,
		"employees_assigned", summary.EmployeesAssigned,
		"durations_updated", summary.DurationsUpdated,
		"skipped", summary.Skipped,
	)
	p.notifyDone(ctx, s, fmt.Sprintf("operations recomputed: %d", summary.OperationsRecomputed))
	return summary, nil
}

func (p *Propagator) propagateWorkOrder(ctx context.Context, store OperationLineStore, availability AvailabilityCalendar,
	taskByLine map[int64]*scheduling.Task, displayType scheduling.DisplayType, workOrderID int64, summary *OperationSummary) error {

	lines, err := store.ListLines(ctx, workOrderID)
	if err != nil {
		return err
	}

	// Find the first line carrying a task; lines before it keep their
	// upstream timing.
	first := -1
	for i, line := range lines {
		if _, ok := taskByLine[line.ID]; ok {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	var prev *OperationLine
	for i := first; i < len(lines); i++ {
		line := lines[i]

		if prev == nil {
			task, ok := taskByLine[line.ID]
			if !ok {
				// The chain start failed earlier and this line has no
				// task of its own to anchor on.
				summary.Skipped++
				continue
			}
			start := task.Start
			line.Start = &start
		} else {
			start, err := p.earliestEnd(ctx, availability, line.WorkcenterID, prev.TransitionHours, *prev.End)
			if err != nil {
				p.logger.WarnContext(ctx, "skipping operation line", "line_id", line.ID, "error", err)
				summary.Skipped++
				continue
			}
			// The overlap rebate is raw clock time, not calendar time;
			// this mirrors the legacy rule.
			overlapHours := prevActualDuration(prev) * line.OverlapPct / 100
			start = start.Add(-time.Duration(overlapHours * float64(time.Hour)))
			line.Start = &start
		}

		end, err := p.earliestEnd(ctx, availability, line.WorkcenterID, line.RemainingHours, *line.Start)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping operation line", "line_id", line.ID, "error", err)
			summary.Skipped++
			continue
		}
		line.End = &end

		if task, ok := taskByLine[line.ID]; ok {
			if line.UnitDuration != task.DurationHours {
				line.UnitDuration = task.DurationHours
				summary.DurationsUpdated++
			}
			// Row ids are hr_employee ids only on operator plannings.
			if displayType == scheduling.DisplayOperatorRows && task.RowID != 0 {
				employee := task.RowID
				if line.EmployeeID == nil || *line.EmployeeID != employee {
					line.EmployeeID = &employee
					summary.EmployeesAssigned++
				}
			}
		}

		// The computed times keep feeding the chain even when the write
		// below fails; a lock on one line must not distort the rest.
		prev = line

		if err := store.UpdateLine(ctx, line); err != nil {
			p.logger.WarnContext(ctx, "failed to update operation line", "line_id", line.ID, "error", err)
			summary.Skipped++
			continue
		}
		summary.OperationsRecomputed++
	}
	return nil
}

// earliestEnd consults the availability calendar; lines without a
// workcenter degrade to raw hour addition.
func (p *Propagator) earliestEnd(ctx context.Context, availability AvailabilityCalendar, workcenterID *int64, hours float64, start time.Time) (time.Time, error) {
	if workcenterID == nil {
		return start.Add(time.Duration(hours * float64(time.Hour))), nil
	}
	return availability.EarliestEnd(ctx, *workcenterID, hours, start)
}

// prevActualDuration is the wall-clock length of the previous line.
func prevActualDuration(prev *OperationLine) float64 {
	if prev.Start == nil || prev.End == nil {
		return 0
	}
	return prev.End.Sub(*prev.Start).Hours()
}

func (p *Propagator) notifyDone(ctx context.Context, s *PlanningSession, message string) {
	if p.observers == nil {
		return
	}
	p.observers.Notify(ctx, observer.Event{
		Type:       observer.EventPropagationDone,
		DatabaseID: s.DatabaseID,
		PlanningID: s.Planning.ID,
		Message:    message,
	})
}
