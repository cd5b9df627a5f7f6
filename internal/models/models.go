// Package models holds the bindings the norm binary registers: a plain
// catalog table, an auth table and an append-only ledger.
package models

import (
	"context"
	"fmt"

	"github.com/saltyorg/norm/database"
)

// Tables is the set of bindings registered by Register.
type Tables struct {
	Products     *database.Table
	Users        *database.AuthTable
	Transactions *database.Ledger
}

// Register constructs every binding against m and registers it in a fixed
// order: products, users, transactions.
func Register(m *database.Manager) (*Tables, error) {
	products, err := NewProducts(m)
	if err != nil {
		return nil, err
	}
	users, err := NewUsers(m)
	if err != nil {
		return nil, err
	}
	transactions, err := NewTransactions(m)
	if err != nil {
		return nil, err
	}

	for _, b := range []database.Binding{products, users, transactions} {
		if err := m.Register(b); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", b.TableName(), err)
		}
	}

	return &Tables{Products: products, Users: users, Transactions: transactions}, nil
}

// primaryKey returns the auto-incrementing id column definition for the
// manager's backend.
func primaryKey(m *database.Manager) string {
	if m.Driver() == database.DriverSQLite {
		return "id INTEGER PRIMARY KEY"
	}
	return "id SERIAL PRIMARY KEY"
}

// ddl returns a schema hook running script, with %s replaced by the id
// column definition.
func ddl(script string) database.SchemaFunc {
	return func(ctx context.Context, t *database.Table) error {
		return t.ExecScript(ctx, fmt.Sprintf(script, primaryKey(t.Manager())))
	}
}
