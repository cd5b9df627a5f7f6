package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateKeepsFirst(t *testing.T) {
	m := newTestManager(t)

	first, err := NewTable(m, "products", []string{"name"})
	require.NoError(t, err)
	second, err := NewTable(m, "products", []string{"name", "price"})
	require.NoError(t, err)

	require.NoError(t, m.Register(first))
	err = m.Register(second)
	require.ErrorIs(t, err, ErrDuplicateRegistration)

	got, ok := m.Lookup("products")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, []string{"products"}, m.Tables())

	assert.ErrorIs(t, m.Register(nil), ErrInvalidArgument)
}

func TestRegister_RejectsForeignManager(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)

	products, err := NewTable(other, "products", []string{"name"})
	require.NoError(t, err)
	users, err := NewAuthTable(other, "users", []string{"name"}, "email")
	require.NoError(t, err)
	ledger, err := NewLedger(other, "transactions", []string{"amount"})
	require.NoError(t, err)

	for _, b := range []Binding{products, users, ledger} {
		assert.ErrorIs(t, m.Register(b), ErrInvalidArgument, "table %s", b.TableName())
	}
	assert.Empty(t, m.Tables())

	require.NoError(t, other.Register(products))
	assert.Equal(t, []string{"products"}, other.Tables())
}

func TestRunLifecycle_BestEffort(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	var calls []string
	hook := func(name string, err error) SchemaFunc {
		return func(context.Context, *Table) error {
			calls = append(calls, name)
			return err
		}
	}

	boom := errors.New("boom")
	bindings := []struct {
		name string
		opt  Option
	}{
		{name: "alpha", opt: WithCreate(hook("alpha", nil))},
		{name: "bravo", opt: WithCreate(hook("bravo", boom))},
		{name: "charlie", opt: WithCreate(func(context.Context, *Table) error {
			calls = append(calls, "charlie")
			panic("schema exploded")
		})},
		{name: "delta", opt: WithCreate(hook("delta", nil))},
		{name: "echo"},
	}
	for _, b := range bindings {
		var opts []Option
		if b.opt != nil {
			opts = append(opts, b.opt)
		}
		tbl, err := NewTable(m, b.name, []string{"name"}, opts...)
		require.NoError(t, err)
		require.NoError(t, m.Register(tbl))
	}

	report, err := NewRunner(m).CreateAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, calls, "every hook runs in registration order")
	assert.Equal(t, PhaseCreate, report.Phase)
	require.Len(t, report.Results, 5)

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, "bravo", failed[0].Table)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Equal(t, "charlie", failed[1].Table)
	assert.Contains(t, failed[1].Err.Error(), "schema exploded")

	assert.ErrorIs(t, report.Err(), boom)
	assert.Contains(t, report.Err().Error(), "bravo")
}

func TestRunLifecycle_AlterAndUnknownPhase(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	var altered bool
	tbl, err := NewTable(m, "products", []string{"name"}, WithAlter(func(context.Context, *Table) error {
		altered = true
		return nil
	}))
	require.NoError(t, err)
	require.NoError(t, m.Register(tbl))

	report, err := NewRunner(m).AlterAll(ctx)
	require.NoError(t, err)
	assert.True(t, altered)
	assert.NoError(t, report.Err())
	assert.NotEqual(t, report.RunID.String(), "00000000-0000-0000-0000-000000000000")

	_, err = m.RunLifecycle(ctx, Phase("drop"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRunner_CreateAllMaterializesTables(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	products, err := NewTable(m, "products", []string{"name", "price", "category"}, WithCreate(scriptHook(productsDDL)))
	require.NoError(t, err)
	transactions, err := NewLedger(m, "transactions", []string{"from_account", "to_account", "amount", "type"},
		WithCreate(scriptHook(transactionsDDL)))
	require.NoError(t, err)

	require.NoError(t, m.Register(products))
	require.NoError(t, m.Register(transactions))

	report, err := NewRunner(m).CreateAll(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	_, err = products.Insert(ctx, Values{"name": "Widget", "price": 1})
	require.NoError(t, err)

	// Second create fails per table because the tables already exist
	report, err = NewRunner(m).CreateAll(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Failed(), 2)
}
