package models

import "github.com/saltyorg/norm/database"

const createUsers = `
CREATE TABLE users (
	%s,
	name VARCHAR(100) NOT NULL,
	email VARCHAR(255) UNIQUE NOT NULL,
	age INTEGER,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// UserColumns are the visible columns of users. password_hash and
// created_at stay hidden.
var UserColumns = []string{"name", "email", "age"}

// NewUsers binds the users table, identified by email. Extra options (a
// cheaper hasher in tests, for example) are applied after the defaults.
func NewUsers(m *database.Manager, opts ...database.Option) (*database.AuthTable, error) {
	return database.NewAuthTable(m, "users", UserColumns, "email",
		append([]database.Option{database.WithCreate(ddl(createUsers))}, opts...)...)
}
