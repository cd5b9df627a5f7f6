package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const productsDDL = `
-- Catalog entries; in_stock is deliberately hidden
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	price REAL NOT NULL,
	category TEXT,
	in_stock BOOLEAN DEFAULT 1
);
`

const usersDDL = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	age INTEGER,
	password_hash TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const transactionsDDL = `
CREATE TABLE transactions (
	id INTEGER PRIMARY KEY,
	from_account INTEGER NOT NULL,
	to_account INTEGER NOT NULL,
	amount DECIMAL(15,2) NOT NULL CHECK (amount > 0),
	type VARCHAR(20) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := Open(context.Background(), Config{
		Driver:   DriverSQLite,
		Database: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err, "failed to open db")
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func scriptHook(ddl string) SchemaFunc {
	return func(ctx context.Context, t *Table) error {
		return t.ExecScript(ctx, ddl)
	}
}

func newProducts(t *testing.T, m *Manager) *Table {
	t.Helper()

	products, err := NewTable(m, "products", []string{"name", "price", "category"}, WithCreate(scriptHook(productsDDL)))
	require.NoError(t, err)
	require.NoError(t, products.Create(context.Background()), "failed to create products")
	return products
}

func newUsers(t *testing.T, m *Manager) *AuthTable {
	t.Helper()

	users, err := NewAuthTable(m, "users", []string{"name", "email", "age"}, "email",
		WithCreate(scriptHook(usersDDL)),
		WithHasher(BcryptHasher{Cost: bcrypt.MinCost}),
	)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background()), "failed to create users")
	return users
}

func newTransactions(t *testing.T, m *Manager) *Ledger {
	t.Helper()

	ledger, err := NewLedger(m, "transactions", []string{"from_account", "to_account", "amount", "type"},
		WithCreate(scriptHook(transactionsDDL)))
	require.NoError(t, err)
	require.NoError(t, ledger.Create(context.Background()), "failed to create transactions")
	return ledger
}
