package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/storage/models"
)

// OperationRepository is the upstream write surface of the operation
// propagator: productions, work orders and operation lines. Instants
// cross this boundary in display-local time and are stored in UTC.
type OperationRepository struct {
	db  bun.IDB
	loc *time.Location
}

// NewOperationRepository creates an OperationRepository over db.
func NewOperationRepository(db bun.IDB, loc *time.Location) *OperationRepository {
	return &OperationRepository{db: db, loc: loc}
}

// FindProduction returns a production's id and planned start.
func (r *OperationRepository) FindProduction(ctx context.Context, id int64) (*planner.Production, error) {
	model := new(models.ProductionModel)
	err := r.db.NewSelect().Model(model).Where("mp.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find production %d: %w", id, err)
	}

	production := &planner.Production{ID: model.ID, Name: model.Name}
	if model.DatePlannedStart != nil {
		start := model.DatePlannedStart.In(r.loc)
		production.PlannedStart = &start
	}
	return production, nil
}

// UpdatePlannedStart rewrites a production's planned start date.
func (r *OperationRepository) UpdatePlannedStart(ctx context.Context, id int64, start time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*models.ProductionModel)(nil)).
		Set("date_planned_start = ?", scheduling.LocalToUTC(r.loc, start)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update production %d planned start: %w", id, err)
	}
	return nil
}

// UpdatePrimaryWorkOrder binds a workcenter and duration onto the
// production's first work order (lowest id).
func (r *OperationRepository) UpdatePrimaryWorkOrder(ctx context.Context, productionID, workcenterID int64, durationHours float64) error {
	order := new(models.WorkOrderModel)
	err := r.db.NewSelect().
		Model(order).
		Where("ot.production_id = ?", productionID).
		OrderExpr("ot.id").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // production has no work order; nothing to bind
	}
	if err != nil {
		return fmt.Errorf("find work order for production %d: %w", productionID, err)
	}

	_, err = r.db.NewUpdate().
		Model((*models.WorkOrderModel)(nil)).
		Set("workcenter_id = ?", workcenterID).
		Set("duree_heures = ?", durationHours).
		Where("id = ?", order.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update work order %d: %w", order.ID, err)
	}
	return nil
}

// ListLines returns a work order's operation lines ordered by (sequence,
// id), converted to the planner representation.
func (r *OperationRepository) ListLines(ctx context.Context, workOrderID int64) ([]*planner.OperationLine, error) {
	var recs []models.OperationLineModel
	err := r.db.NewSelect().
		Model(&recs).
		Where("l.ordre_id = ?", workOrderID).
		OrderExpr("l.sequence, l.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lines for work order %d: %w", workOrderID, err)
	}

	lines := make([]*planner.OperationLine, 0, len(recs))
	for _, rec := range recs {
		line := &planner.OperationLine{
			ID:              rec.ID,
			WorkOrderID:     rec.OrdreID,
			Name:            rec.Name,
			Sequence:        rec.Sequence,
			WorkcenterID:    rec.WorkcenterID,
			EmployeeID:      rec.EmployeID,
			RemainingHours:  rec.ResteHeures,
			UnitDuration:    rec.DureeUnitaire,
			OverlapPct:      rec.RecouvrementPct,
			TransitionHours: rec.TransitionHeures,
		}
		if rec.DateDebut != nil {
			start := rec.DateDebut.In(r.loc)
			line.Start = &start
		}
		if rec.DateFin != nil {
			end := rec.DateFin.In(r.loc)
			line.End = &end
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// UpdateLine writes back the propagated fields of one operation line:
// start, end, unit duration and employee assignment.
func (r *OperationRepository) UpdateLine(ctx context.Context, line *planner.OperationLine) error {
	q := r.db.NewUpdate().
		Model((*models.OperationLineModel)(nil)).
		Set("duree_unitaire = ?", line.UnitDuration).
		Set("employe_id = ?", line.EmployeeID).
		Where("id = ?", line.ID)

	if line.Start != nil {
		q = q.Set("date_debut = ?", scheduling.LocalToUTC(r.loc, *line.Start))
	}
	if line.End != nil {
		q = q.Set("date_fin = ?", scheduling.LocalToUTC(r.loc, *line.End))
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("update operation line %d: %w", line.ID, err)
	}
	return nil
}
