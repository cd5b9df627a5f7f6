package database

import "context"

// Immutable attaches the immutability capability: Update and Delete fail
// with ErrImmutableLedger before a connection is acquired, and Exec and
// ExecScript accept only schema statements and plain inserts.
func Immutable() Option {
	return func(t *Table) error {
		t.immutable = true
		return nil
	}
}

// Ledger is an append-only Table. Reads and Insert behave as on Table.
type Ledger struct {
	*Table
}

// NewLedger binds an append-only table.
func NewLedger(m *Manager, name string, visible []string, opts ...Option) (*Ledger, error) {
	t, err := NewTable(m, name, visible, append(opts, Immutable())...)
	if err != nil {
		return nil, err
	}
	return &Ledger{Table: t}, nil
}

// Update always fails: ledger entries are never mutated.
func (l *Ledger) Update(context.Context, int64, Values) (Record, error) {
	return Record{}, immutableLedger(l.name, "update")
}

// Delete always fails: ledger entries are never removed.
func (l *Ledger) Delete(context.Context, int64) error {
	return immutableLedger(l.name, "delete")
}
