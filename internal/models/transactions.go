package models

import "github.com/saltyorg/norm/database"

const createTransactions = `
CREATE TABLE transactions (
	%s,
	from_account INTEGER NOT NULL,
	to_account INTEGER NOT NULL,
	amount DECIMAL(15,2) NOT NULL CHECK (amount > 0),
	type VARCHAR(20) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const alterTransactions = `
CREATE INDEX IF NOT EXISTS transactions_from_account_idx ON transactions (from_account);
CREATE INDEX IF NOT EXISTS transactions_to_account_idx ON transactions (to_account);
`

// TransactionColumns are the visible columns of the transactions ledger.
var TransactionColumns = []string{"from_account", "to_account", "amount", "type"}

// NewTransactions binds the append-only transactions ledger.
func NewTransactions(m *database.Manager) (*database.Ledger, error) {
	return database.NewLedger(m, "transactions", TransactionColumns,
		database.WithCreate(ddl(createTransactions)),
		database.WithAlter(ddl(alterTransactions)),
	)
}
