package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

func openSQLite(cfg Config) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, cfg.sqliteDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
