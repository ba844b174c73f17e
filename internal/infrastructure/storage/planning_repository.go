package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/storage/models"
)

// PlanningSummary is one entry of the planning-selection screen.
type PlanningSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	TaskCount   int    `json:"tache_count"`
	AffairCount int    `json:"affaire_count"`
}

// PlanningRepository loads plannings and their rows, tasks, affairs and
// closures into the domain representation. All instants leave this
// repository in display-local wall time; storage itself holds UTC.
type PlanningRepository struct {
	db  bun.IDB
	loc *time.Location
}

// NewPlanningRepository creates a PlanningRepository converting stored UTC
// instants into loc.
func NewPlanningRepository(db bun.IDB, loc *time.Location) *PlanningRepository {
	return &PlanningRepository{db: db, loc: loc}
}

// List returns the active plannings with their task and affair counts,
// ordered by name.
func (r *PlanningRepository) List(ctx context.Context) ([]PlanningSummary, error) {
	var out []PlanningSummary
	err := r.db.NewSelect().
		Model((*models.PlanningModel)(nil)).
		ColumnExpr("p.id").
		ColumnExpr("p.name").
		ColumnExpr("COUNT(DISTINCT t.id) AS task_count").
		ColumnExpr("COUNT(DISTINCT a.id) AS affair_count").
		Join("LEFT JOIN is_gestion_tache AS t ON t.planning_id = p.id").
		Join("LEFT JOIN is_gestion_tache_affaire AS a ON a.planning_id = p.id").
		Where("p.active = ?", true).
		GroupExpr("p.id, p.name").
		OrderExpr("p.name").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("list plannings: %w", err)
	}
	return out, nil
}

// Find returns the planning with the given id as a domain value.
func (r *PlanningRepository) Find(ctx context.Context, id int64) (*scheduling.Planning, error) {
	model := new(models.PlanningModel)
	err := r.db.NewSelect().Model(model).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanningNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find planning %d: %w", id, err)
	}

	planning := &scheduling.Planning{
		ID:          model.ID,
		Name:        model.Name,
		DisplayType: displayTypeOf(model.TypeDonnees),
		Filter:      model.Filtre,
		Ready:       model.Ready,
	}
	if model.DateFin != nil {
		end := model.DateFin.In(r.loc)
		planning.EndDate = &end
	}
	return planning, nil
}

// Rows returns the planning's rows in display order (alphabetical by
// name, as the membership queries order them).
func (r *PlanningRepository) Rows(ctx context.Context, planning *scheduling.Planning) ([]scheduling.Row, error) {
	type rowRec struct {
		ID   int64  `bun:"id"`
		Name string `bun:"name"`
	}
	var recs []rowRec
	var err error

	switch planning.DisplayType {
	case scheduling.DisplayWorkcenterRows:
		err = r.db.NewSelect().
			Model((*models.WorkcenterLinkModel)(nil)).
			ColumnExpr("w.workcenter_id AS id").
			ColumnExpr("mw.name AS name").
			Join("JOIN mrp_workcenter AS mw ON w.workcenter_id = mw.id").
			Where("w.planning_id = ?", planning.ID).
			OrderExpr("mw.name").
			Scan(ctx, &recs)
	default:
		err = r.db.NewSelect().
			Model((*models.OperatorLinkModel)(nil)).
			ColumnExpr("op.operator_id AS id").
			ColumnExpr("he.name AS name").
			Join("JOIN hr_employee AS he ON op.operator_id = he.id").
			Where("op.planning_id = ?", planning.ID).
			OrderExpr("he.name").
			Scan(ctx, &recs)
	}
	if err != nil {
		return nil, fmt.Errorf("load rows for planning %d: %w", planning.ID, err)
	}

	rows := make([]scheduling.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, scheduling.Row{ID: rec.ID, PlanningID: planning.ID, Name: rec.Name})
	}
	return rows, nil
}

// Affairs returns the planning's affairs ordered by name. A missing color
// falls back to neutral grey, matching what the front-end expects.
func (r *PlanningRepository) Affairs(ctx context.Context, planningID int64) ([]scheduling.Affair, error) {
	var recs []models.AffaireModel
	err := r.db.NewSelect().
		Model(&recs).
		Where("a.planning_id = ?", planningID).
		OrderExpr("a.name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load affairs for planning %d: %w", planningID, err)
	}

	affairs := make([]scheduling.Affair, 0, len(recs))
	for _, rec := range recs {
		color := rec.Color
		if color == "" {
			color = "#808080"
		}
		affairs = append(affairs, scheduling.Affair{
			ID:         rec.ID,
			PlanningID: rec.PlanningID,
			Name:       rec.Name,
			Color:      color,
		})
	}
	return affairs, nil
}

// Closures returns the planning's closure records with the date truncated
// to the day in display-local time.
func (r *PlanningRepository) Closures(ctx context.Context, planningID int64) ([]scheduling.Closure, error) {
	var recs []models.FermetureModel
	err := r.db.NewSelect().
		Model(&recs).
		Where("f.planning_id = ?", planningID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load closures for planning %d: %w", planningID, err)
	}

	closures := make([]scheduling.Closure, 0, len(recs))
	for _, rec := range recs {
		day := rec.DateFermeture.In(r.loc)
		y, m, d := day.Date()
		closures = append(closures, scheduling.Closure{
			ID:         rec.ID,
			PlanningID: rec.PlanningID,
			Date:       time.Date(y, m, d, 0, 0, 0, 0, r.loc),
			RowID:      rec.OperatorID,
		})
	}
	return closures, nil
}

// Tasks returns the planning's tasks as domain values. Stored UTC start
// instants are converted to display-local time and snapped to the slot
// anchor (08:00 or 14:00) so the in-memory model always sits on a slot
// boundary.
func (r *PlanningRepository) Tasks(ctx context.Context, planning *scheduling.Planning) ([]*scheduling.Task, error) {
	rowColumn := rowIDColumn(planning.DisplayType)

	q := r.db.NewSelect().
		Model((*models.TaskModel)(nil)).
		ColumnExpr("t.id, t.planning_id, t.name, t.affaire_id, t.start_date, t.duration_hours").
		ColumnExpr("t.operation_id, t.product_qty, t.production_id, t.is_derniere_date_prevue").
		ColumnExpr("t.? AS row_id", bun.Ident(rowColumn)).
		ColumnExpr("mp.is_employe_ids_txt").
		Join("LEFT JOIN mrp_production AS mp ON mp.id = t.production_id").
		Where("t.planning_id = ?", planning.ID).
		OrderExpr("t.start_date, t.?", bun.Ident(rowColumn))

	if planning.DisplayType == scheduling.DisplayOperatorRows {
		q = q.ColumnExpr("l.name AS operation_name").
			ColumnExpr("l.ordre_id AS work_order_id").
			Join("LEFT JOIN is_ordre_travail_line AS l ON l.id = t.operation_id")
	} else {
		q = q.ColumnExpr("NULL AS operation_name").
			ColumnExpr("NULL AS work_order_id")
	}

	type taskRec struct {
		models.TaskModel `bun:",extend"`
		RowID            *int64 `bun:"row_id"`
		WorkOrderID      *int64 `bun:"work_order_id"`
	}
	var recs []taskRec
	if err := q.Scan(ctx, &recs); err != nil {
		return nil, fmt.Errorf("load tasks for planning %d: %w", planning.ID, err)
	}

	tasks := make([]*scheduling.Task, 0, len(recs))
	for _, rec := range recs {
		if rec.RowID == nil {
			// A task with no row assignment cannot be placed on the grid;
			// the loader drops it, same as the legacy behavior.
			continue
		}
		task := &scheduling.Task{
			ID:            rec.ID,
			PlanningID:    rec.PlanningID,
			RowID:         *rec.RowID,
			AffairID:      rec.AffaireID,
			Name:          rec.Name,
			Start:         snapToSlotAnchor(rec.StartDate.In(r.loc)),
			DurationHours: rec.DurationHours,

			ProductionID:     rec.ProductionID,
			WorkOrderID:      rec.WorkOrderID,
			OperationLineID:  rec.OperationID,
			RemainingQty:     rec.ProductQty,
			LastRequiredDate: rec.DerniereDateRequiseAt,
			OperationName:    rec.OperationName,
			EmployeeLabel:    rec.EmployeLabel,
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// snapToSlotAnchor rewrites a local instant onto its half-day anchor:
// 08:00 for mornings, 14:00 for afternoons (hour >= 12).
func snapToSlotAnchor(local time.Time) time.Time {
	hour := 8
	if local.Hour() >= 12 {
		hour = 14
	}
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
}

// displayTypeOf maps the stored type_donnees value onto the domain enum.
func displayTypeOf(typeDonnees string) scheduling.DisplayType {
	if typeDonnees == models.PlanningTypeWorkcenter {
		return scheduling.DisplayWorkcenterRows
	}
	return scheduling.DisplayOperatorRows
}

// rowIDColumn selects the task column carrying the row id for a display
// type: operator_id for operator plannings, workcenter_id for workcenter
// plannings.
func rowIDColumn(dt scheduling.DisplayType) string {
	if dt == scheduling.DisplayWorkcenterRows {
		return "workcenter_id"
	}
	return "operator_id"
}
