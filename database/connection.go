package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// acquire checks a connection out of the pool. The wait is bounded by
// ConnectTimeout; the returned connection outlives that deadline.
func (m *Manager) acquire(ctx context.Context) (*sqlx.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	c, err := m.conn.Connx(actx)
	if err != nil {
		return nil, connectionError("acquire connection", err)
	}
	return c, nil
}

// withConn runs fn on a connection used exclusively by this call.
func (m *Manager) withConn(ctx context.Context, fn func(*sqlx.Conn) error) error {
	c, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to return connection to pool")
		}
	}()
	return fn(c)
}

func (m *Manager) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = m.conn.Rebind(query)
	log.Trace().Str("query", query).Msg("Executing statement")

	var res sql.Result
	err := m.withConn(ctx, func(c *sqlx.Conn) error {
		var err error
		res, err = c.ExecContext(ctx, query, args...)
		return classify("execute statement", err)
	})
	return res, err
}

func (m *Manager) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	query = m.conn.Rebind(query)
	log.Trace().Str("query", query).Msg("Executing query")

	var records []Record
	err := m.withConn(ctx, func(c *sqlx.Conn) error {
		rows, err := c.QueryxContext(ctx, query, args...)
		if err != nil {
			return classify("execute query", err)
		}
		defer rows.Close()

		records, err = scanRecords(rows)
		return classify("read rows", err)
	})
	return records, err
}

// querySlice returns the first row as raw values, or sql.ErrNoRows.
func (m *Manager) querySlice(ctx context.Context, query string, args ...any) ([]any, error) {
	query = m.conn.Rebind(query)
	log.Trace().Str("query", query).Msg("Executing query")

	var values []any
	err := m.withConn(ctx, func(c *sqlx.Conn) error {
		rows, err := c.QueryxContext(ctx, query, args...)
		if err != nil {
			return classify("execute query", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return classify("read rows", err)
			}
			return sql.ErrNoRows
		}
		values, err = rows.SliceScan()
		return classify("read rows", err)
	})
	return values, err
}
