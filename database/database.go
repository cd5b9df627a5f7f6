// Package database binds Go code to relational tables through an explicit
// whitelist of visible columns.
//
// A Manager owns the connection pool and a registry of bindings. Tables are
// constructed against a Manager, registered with it, and then used for
// list/fetch/insert/update/delete restricted to their visible columns.
// AuthTable adds password hashing and verification; Ledger is append-only.
package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Manager owns one connection pool and the registry of bound tables.
type Manager struct {
	conn    *sqlx.DB
	cfg     Config
	dialect dialect

	mu     sync.RWMutex
	tables map[string]Binding
	order  []string
}

// Open applies defaults to cfg, opens the pool and verifies connectivity
// within cfg.ConnectTimeout.
func Open(ctx context.Context, cfg Config) (*Manager, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, invalidArgument("", "%v", err)
	}

	db, err := d.open(cfg)
	if err != nil {
		return nil, connectionError("open database", err)
	}

	// Acquisition blocks once Max connections are checked out
	db.SetMaxOpenConns(cfg.Max)
	db.SetMaxIdleConns(cfg.Max)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	m := &Manager{
		conn:    sqlx.NewDb(db, d.driverName),
		cfg:     cfg,
		dialect: d,
		tables:  make(map[string]Binding),
	}

	if err := m.Ping(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("Failed to close pool after ping failure")
		}
		return nil, err
	}

	log.Debug().
		Str("driver", string(cfg.Driver)).
		Str("database", cfg.Database).
		Int("max", cfg.Max).
		Msg("Database connection established")

	return m, nil
}

// Driver returns the backend this manager is connected to.
func (m *Manager) Driver() Driver {
	return m.dialect.driver
}

// Config returns the effective configuration, defaults applied.
func (m *Manager) Config() Config {
	return m.cfg
}

// Close drains the pool. Registered bindings must not be used afterwards.
func (m *Manager) Close() error {
	if m == nil || m.conn == nil {
		return nil
	}
	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Debug().Str("database", m.cfg.Database).Msg("Database connection closed")
	return nil
}
