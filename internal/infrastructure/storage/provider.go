package storage

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/smilemakc/atelier/internal/config"
)

// Provider hands out one Bun connection pool per configured upstream
// database, opened lazily on first selection and reused afterwards.
type Provider struct {
	mu    sync.Mutex
	cfg   config.DatabasesConfig
	debug bool
	open  map[string]*bun.DB
}

// NewProvider creates a Provider over the configured database list.
func NewProvider(cfg config.DatabasesConfig, debug bool) *Provider {
	return &Provider{
		cfg:   cfg,
		debug: debug,
		open:  make(map[string]*bun.DB),
	}
}

// Specs returns the configured database list in declaration order.
func (p *Provider) Specs() []config.DatabaseSpec {
	return p.cfg.Specs
}

// Get returns the connection pool for the database with the given id,
// opening it on first use.
func (p *Provider) Get(id string) (*bun.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if db, ok := p.open[id]; ok {
		return db, nil
	}

	spec := p.cfg.Spec(id)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseUnknown, id)
	}

	db, err := NewDB(&Config{
		DSN:             spec.DSN,
		MaxOpenConns:    p.cfg.MaxConnections,
		MaxIdleConns:    p.cfg.MinConnections,
		ConnMaxLifetime: p.cfg.MaxConnLifetime,
		ConnMaxIdleTime: p.cfg.MaxIdleTime,
		Debug:           p.debug,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", id, err)
	}

	p.open[id] = db
	return db, nil
}

// Stats returns the pool statistics of every opened database.
func (p *Provider) Stats() map[string]sql.DBStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]sql.DBStats, len(p.open))
	for id, db := range p.open {
		out[id] = db.DB.Stats()
	}
	return out
}

// Close closes every opened connection pool.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for id, db := range p.open {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.open, id)
	}
	return firstErr
}
