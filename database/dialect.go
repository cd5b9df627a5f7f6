package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// dialect knows how to open a pool for one Driver and which placeholder
// style sqlx should rebind queries to.
type dialect struct {
	driver     Driver
	driverName string
	open       func(Config) (*sql.DB, error)
}

func init() {
	sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
}

func dialectFor(d Driver) (dialect, error) {
	switch d {
	case DriverPostgres:
		return dialect{driver: d, driverName: postgresDriverName, open: openPostgres}, nil
	case DriverSQLite:
		return dialect{driver: d, driverName: sqliteDriverName, open: openSQLite}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported driver %q", d)
	}
}
