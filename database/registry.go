package database

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Binding is anything the Manager can run lifecycle hooks for.
// *Table, *AuthTable and *Ledger all satisfy it.
type Binding interface {
	TableName() string
	Visible() []string
	Create(ctx context.Context) error
	Alter(ctx context.Context) error
}

// Register adds b to the registry under its table name. Registering a name
// twice fails and leaves the first binding in place. Bindings built on a
// Table must have been constructed against m.
func (m *Manager) Register(b Binding) error {
	if b == nil {
		return invalidArgument("", "binding is nil")
	}
	name := b.TableName()
	if !validIdentifier(name) {
		return invalidArgument("", "invalid table name %q", name)
	}
	if owned, ok := b.(interface{ Manager() *Manager }); ok && owned.Manager() != m {
		return invalidArgument(name, "binding belongs to a different manager")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tables[name]; exists {
		return &Error{
			Kind:    KindDuplicateRegistration,
			Table:   name,
			Message: "table is already registered",
		}
	}

	m.tables[name] = b
	m.order = append(m.order, name)

	log.Debug().Str("table", name).Strs("visible", b.Visible()).Msg("Registered table")
	return nil
}

// Lookup returns the binding registered under name.
func (m *Manager) Lookup(name string) (Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.tables[name]
	return b, ok
}

// Tables returns registered table names in registration order.
func (m *Manager) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) bindings() []Binding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Binding, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.tables[name])
	}
	return out
}
