package storage

import (
	"time"

	"github.com/smilemakc/atelier/internal/application/planner"
)

// Backends adapts the Provider to the planner's per-database ports.
type Backends struct {
	provider *Provider
	loc      *time.Location
}

// NewBackends creates the planner backends over a Provider.
func NewBackends(provider *Provider, loc *time.Location) *Backends {
	return &Backends{provider: provider, loc: loc}
}

// Loader returns the planning loader for a database.
func (b *Backends) Loader(databaseID string) (planner.PlanningLoader, error) {
	db, err := b.provider.Get(databaseID)
	if err != nil {
		return nil, err
	}
	return NewPlanningRepository(db, b.loc), nil
}

// Persister returns the task persister for a database.
func (b *Backends) Persister(databaseID string) (planner.TaskPersister, error) {
	db, err := b.provider.Get(databaseID)
	if err != nil {
		return nil, err
	}
	return NewTaskRepository(db, b.loc), nil
}

// Productions returns the production store for a database.
func (b *Backends) Productions(databaseID string) (planner.ProductionStore, error) {
	db, err := b.provider.Get(databaseID)
	if err != nil {
		return nil, err
	}
	return NewOperationRepository(db, b.loc), nil
}

// OperationLines returns the operation-line store for a database.
func (b *Backends) OperationLines(databaseID string) (planner.OperationLineStore, error) {
	db, err := b.provider.Get(databaseID)
	if err != nil {
		return nil, err
	}
	return NewOperationRepository(db, b.loc), nil
}

// Availability returns the workcenter availability calendar for a
// database.
func (b *Backends) Availability(databaseID string) (planner.AvailabilityCalendar, error) {
	db, err := b.provider.Get(databaseID)
	if err != nil {
		return nil, err
	}
	return NewWorkcenterCalendar(db), nil
}
