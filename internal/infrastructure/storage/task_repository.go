package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/atelier/internal/domain/scheduling"
)

// TaskRepository is the write side of the persistence adapter: it pushes
// a batch of edited tasks back into is_gestion_tache within a single
// transaction, converting display-local instants to UTC on the way out.
type TaskRepository struct {
	db  *bun.DB
	loc *time.Location
}

// NewTaskRepository creates a TaskRepository writing through db, treating
// task start instants as wall-clock time in loc.
func NewTaskRepository(db *bun.DB, loc *time.Location) *TaskRepository {
	return &TaskRepository{db: db, loc: loc}
}

// PersistRow writes every task of one row in a single transaction. The
// row-id column is selected by the planning display type. Any failure
// rolls back the whole batch.
func (r *TaskRepository) PersistRow(ctx context.Context, displayType scheduling.DisplayType, tasks []*scheduling.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rowColumn := rowIDColumn(displayType)

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, task := range tasks {
			startUTC := scheduling.LocalToUTC(r.loc, task.Start)
			res, err := tx.NewUpdate().
				Table("is_gestion_tache").
				Set("start_date = ?", startUTC).
				Set("duration_hours = ?", task.DurationHours).
				Set("? = ?", bun.Ident(rowColumn), task.RowID).
				Where("id = ?", task.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("update task %d: %w", task.ID, err)
			}
			if affected, err := res.RowsAffected(); err == nil && affected == 0 {
				return fmt.Errorf("update task %d: no row affected", task.ID)
			}
		}
		return nil
	})
}
