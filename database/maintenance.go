package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Ping verifies the store is reachable within ConnectTimeout.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	if err := m.conn.PingContext(ctx); err != nil {
		return connectionError("ping database", err)
	}
	return nil
}

// Stats reports pool usage.
func (m *Manager) Stats() sql.DBStats {
	if m == nil || m.conn == nil {
		return sql.DBStats{}
	}
	return m.conn.Stats()
}
