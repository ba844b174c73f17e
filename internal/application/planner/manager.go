package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smilemakc/atelier/internal/config"
	"github.com/smilemakc/atelier/internal/domain/scheduling"
	"github.com/smilemakc/atelier/internal/infrastructure/logger"
)

// ReloadScope selects which part of a session a reload refreshes.
type ReloadScope string

const (
	ReloadAll      ReloadScope = "all"
	ReloadTasks    ReloadScope = "tasks"
	ReloadRows     ReloadScope = "operators"
	ReloadAffairs  ReloadScope = "affairs"
)

// Manager owns the loaded planning sessions, keyed by database and
// planning id. Selecting a planning replaces its session wholesale; no
// in-memory task survives a planning switch.
type Manager struct {
	mu       sync.RWMutex
	backends Backends
	cfg      config.SchedulingConfig
	loc      *time.Location
	logger   *logger.Logger
	sessions map[string]*PlanningSession
}

// NewManager creates a Manager over the given backends.
func NewManager(backends Backends, cfg config.SchedulingConfig, log *logger.Logger) (*Manager, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve display timezone: %w", err)
	}
	return &Manager{
		backends: backends,
		cfg:      cfg,
		loc:      loc,
		logger:   log,
		sessions: make(map[string]*PlanningSession),
	}, nil
}

// Location returns the display timezone.
func (m *Manager) Location() *time.Location { return m.loc }

// Config returns the scheduling parameters the manager was built with.
func (m *Manager) Config() config.SchedulingConfig { return m.cfg }

func sessionKey(databaseID string, planningID int64) string {
	return fmt.Sprintf("%s/%d", databaseID, planningID)
}

// Select loads the planning from the upstream database and replaces any
// previously loaded session for it.
func (m *Manager) Select(ctx context.Context, databaseID string, planningID int64) (*PlanningSession, error) {
	loader, err := m.backends.Loader(databaseID)
	if err != nil {
		return nil, err
	}
	persister, err := m.backends.Persister(databaseID)
	if err != nil {
		return nil, err
	}

	planning, err := loader.Find(ctx, planningID)
	if err != nil {
		return nil, err
	}
	rows, err := loader.Rows(ctx, planning)
	if err != nil {
		return nil, err
	}
	affairs, err := loader.Affairs(ctx, planningID)
	if err != nil {
		return nil, err
	}
	closures, err := loader.Closures(ctx, planningID)
	if err != nil {
		return nil, err
	}
	tasks, err := loader.Tasks(ctx, planning)
	if err != nil {
		return nil, err
	}

	session := newSession(databaseID, planning, rows, affairs, closures, tasks, m.cfg, m.loc, persister)

	m.mu.Lock()
	m.sessions[sessionKey(databaseID, planningID)] = session
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "planning selected",
		"database", databaseID,
		"planning_id", planningID,
		"planning", planning.Name,
		"display_type", string(planning.DisplayType),
		"rows", len(rows),
		"tasks", len(tasks),
	)
	return session, nil
}

// Get returns the loaded session for the given planning.
func (m *Manager) Get(databaseID string, planningID int64) (*PlanningSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionKey(databaseID, planningID)]
	if !ok {
		return nil, ErrNoPlanningSelected
	}
	return session, nil
}

// Sessions returns a snapshot of every loaded session.
func (m *Manager) Sessions() []*PlanningSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*PlanningSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Reload refreshes part of a loaded session from the upstream database.
// The fresh data is read before the session lock is taken, then swapped
// in atomically.
func (m *Manager) Reload(ctx context.Context, session *PlanningSession, scope ReloadScope) error {
	loader, err := m.backends.Loader(session.DatabaseID)
	if err != nil {
		return err
	}

	switch scope {
	case ReloadTasks:
		tasks, err := loader.Tasks(ctx, session.Planning)
		if err != nil {
			return err
		}
		session.Lock()
		session.store.Reset(tasks)
		session.cal = scheduling.NewCalendar(planningStartDate(tasks, m.loc), m.cfg.HalfDayHours)
		session.Unlock()

	case ReloadRows:
		rows, err := loader.Rows(ctx, session.Planning)
		if err != nil {
			return err
		}
		closures, err := loader.Closures(ctx, session.Planning.ID)
		if err != nil {
			return err
		}
		session.Lock()
		session.rows = rows
		session.closures = scheduling.NewClosureIndex(closures)
		session.Unlock()

	case ReloadAffairs:
		affairs, err := loader.Affairs(ctx, session.Planning.ID)
		if err != nil {
			return err
		}
		session.Lock()
		session.affairs = affairs
		session.Unlock()

	default: // ReloadAll
		if _, err := m.Select(ctx, session.DatabaseID, session.Planning.ID); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "planning reloaded",
		"database", session.DatabaseID,
		"planning_id", session.Planning.ID,
		"scope", string(scope),
	)
	return nil
}
