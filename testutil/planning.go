package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smilemakc/atelier/internal/application/planner"
	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
)

// SchedulingConfig returns the engine defaults used across tests.
func SchedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		DisplayTimezone:  "Europe/Paris",
		HalfDayHours:     3.5,
		MinHorizon:       60,
		HorizonMargin:    14,
		KeyboardChainCap: 20,
		RowSweepCap:      50,
	}
}

// FakeBackends is an in-memory planner.Backends. One instance models one
// upstream database holding one planning.
type FakeBackends struct {
	Planning *scheduling.Planning
	RowList  []scheduling.Row
	Affair   []scheduling.Affair
	Closure  []scheduling.Closure
	TaskList []*scheduling.Task

	Persist     *FakePersister
	Production  *FakeProductionStore
	Lines       *FakeOperationLineStore
	Calendar    *FakeAvailability
}

// NewFakeBackends seeds a backends fixture with an operator planning.
func NewFakeBackends(rows []scheduling.Row, tasks []*scheduling.Task) *FakeBackends {
	return &FakeBackends{
		Planning: &scheduling.Planning{
			ID:          1,
			Name:        "Atelier usinage",
			DisplayType: scheduling.DisplayOperatorRows,
		},
		RowList:    rows,
		TaskList:   tasks,
		Persist:    &FakePersister{},
		Production: &FakeProductionStore{Productions: map[int64]*planner.Production{}},
		Lines:      &FakeOperationLineStore{LinesByOrder: map[int64][]*planner.OperationLine{}},
		Calendar:   &FakeAvailability{},
	}
}

func (b *FakeBackends) Loader(string) (planner.PlanningLoader, error)             { return b, nil }
func (b *FakeBackends) Persister(string) (planner.TaskPersister, error)           { return b.Persist, nil }
func (b *FakeBackends) Productions(string) (planner.ProductionStore, error)       { return b.Production, nil }
func (b *FakeBackends) OperationLines(string) (planner.OperationLineStore, error) { return b.Lines, nil }
func (b *FakeBackends) Availability(string) (planner.AvailabilityCalendar, error) { return b.Calendar, nil }

func (b *FakeBackends) Find(_ context.Context, id int64) (*scheduling.Planning, error) {
	if b.Planning == nil || b.Planning.ID != id {
		return nil, errors.New("planning not found")
	}
	return b.Planning, nil
}

func (b *FakeBackends) Rows(context.Context, *scheduling.Planning) ([]scheduling.Row, error) {
	return b.RowList, nil
}

func (b *FakeBackends) Affairs(context.Context, int64) ([]scheduling.Affair, error) {
	return b.Affair, nil
}

func (b *FakeBackends) Closures(context.Context, int64) ([]scheduling.Closure, error) {
	return b.Closure, nil
}

func (b *FakeBackends) Tasks(context.Context, *scheduling.Planning) ([]*scheduling.Task, error) {
	out := make([]*scheduling.Task, 0, len(b.TaskList))
	for _, t := range b.TaskList {
		out = append(out, t.Clone())
	}
	return out, nil
}

// FakePersister records persisted batches and can be told to fail.
type FakePersister struct {
	mu      sync.Mutex
	Batches [][]*scheduling.Task
	Err     error
}

func (p *FakePersister) PersistRow(_ context.Context, _ scheduling.DisplayType, tasks []*scheduling.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	batch := make([]*scheduling.Task, 0, len(tasks))
	for _, t := range tasks {
		batch = append(batch, t.Clone())
	}
	p.Batches = append(p.Batches, batch)
	return nil
}

// LastBatch returns the most recently persisted batch, or nil.
func (p *FakePersister) LastBatch() []*scheduling.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Batches) == 0 {
		return nil
	}
	return p.Batches[len(p.Batches)-1]
}

// FakeProductionStore is an in-memory planner.ProductionStore.
type FakeProductionStore struct {
	mu          sync.Mutex
	Productions map[int64]*planner.Production
	WorkOrders  map[int64]int64 // production -> bound workcenter
	Durations   map[int64]float64
}

func (s *FakeProductionStore) FindProduction(_ context.Context, id int64) (*planner.Production, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Productions[id]
	if !ok {
		return nil, errors.New("production not found")
	}
	cp := *p
	return &cp, nil
}

func (s *FakeProductionStore) UpdatePlannedStart(_ context.Context, id int64, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Productions[id]
	if !ok {
		return errors.New("production not found")
	}
	p.PlannedStart = &start
	return nil
}

func (s *FakeProductionStore) UpdatePrimaryWorkOrder(_ context.Context, productionID, workcenterID int64, durationHours float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WorkOrders == nil {
		s.WorkOrders = make(map[int64]int64)
	}
	if s.Durations == nil {
		s.Durations = make(map[int64]float64)
	}
	s.WorkOrders[productionID] = workcenterID
	s.Durations[productionID] = durationHours
	return nil
}

// FakeOperationLineStore is an in-memory planner.OperationLineStore.
type FakeOperationLineStore struct {
	mu           sync.Mutex
	LinesByOrder map[int64][]*planner.OperationLine
	Updated      []*planner.OperationLine
	UpdateErr    error
}

func (s *FakeOperationLineStore) ListLines(_ context.Context, workOrderID int64) ([]*planner.OperationLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.LinesByOrder[workOrderID]
	out := make([]*planner.OperationLine, 0, len(lines))
	for _, l := range lines {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *FakeOperationLineStore) UpdateLine(_ context.Context, line *planner.OperationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	cp := *line
	s.Updated = append(s.Updated, &cp)
	return nil
}

// FakeAvailability adds hours linearly, ignoring any calendar. Tests
// asserting calendar-aware math swap in their own implementation.
type FakeAvailability struct {
	Err error
}

func (a *FakeAvailability) EarliestEnd(_ context.Context, _ int64, durationHours float64, start time.Time) (time.Time, error) {
	if a.Err != nil {
		return time.Time{}, a.Err
	}
	return start.Add(time.Duration(durationHours * float64(time.Hour))), nil
}
