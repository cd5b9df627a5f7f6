package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// postgresDriverName is the name sqlx maps to $N placeholders.
const postgresDriverName = "pgx"

func openPostgres(cfg Config) (*sql.DB, error) {
	pgCfg, err := pgx.ParseConfig(cfg.postgresConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	if !cfg.prepare() {
		pgCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	if cfg.SSL == SSLCustom {
		pgCfg.TLSConfig = cfg.tlsConfig
		for _, fb := range pgCfg.Fallbacks {
			fb.TLSConfig = cfg.tlsConfig
		}
	}

	var opts []stdlib.OptionOpenDB
	if cfg.fetchTypes() && len(cfg.Types) > 0 {
		opts = append(opts, stdlib.OptionAfterConnect(loadTypes(cfg.Types)))
	}

	return stdlib.OpenDB(*pgCfg, opts...), nil
}

// loadTypes registers custom types (enums, domains, composites) on each new
// connection so they decode without manual registration.
func loadTypes(names []string) func(context.Context, *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		for _, name := range names {
			t, err := conn.LoadType(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to load type %s: %w", name, err)
			}
			conn.TypeMap().RegisterType(t)
			log.Trace().Str("type", name).Msg("Registered custom type")
		}
		return nil
	}
}

func isPostgresConnectError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	return pgconn.Timeout(err)
}
