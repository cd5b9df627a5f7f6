package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const (
	// PrimaryKey is the column every bound table must define.
	PrimaryKey = "id"
	// DefaultMaxRowsFetched caps a single read unless changed per table.
	DefaultMaxRowsFetched = 50
)

// SchemaFunc (re)materializes a table's physical schema. It is invoked during
// lifecycle runs and may use t.Exec or t.ExecScript.
type SchemaFunc func(ctx context.Context, t *Table) error

// Option configures a Table at construction.
type Option func(*Table) error

// WithCreate sets the hook run by the create lifecycle phase.
func WithCreate(fn SchemaFunc) Option {
	return func(t *Table) error {
		t.create = fn
		return nil
	}
}

// WithAlter sets the hook run by the alter lifecycle phase.
func WithAlter(fn SchemaFunc) Option {
	return func(t *Table) error {
		t.alter = fn
		return nil
	}
}

// WithMaxRowsFetched overrides DefaultMaxRowsFetched.
func WithMaxRowsFetched(n int) Option {
	return func(t *Table) error {
		return t.SetMaxRowsFetched(n)
	}
}

// Table is a binding of one table name to one whitelist of visible columns.
// Every statement it issues touches only the visible columns and the primary
// key; the same whitelist governs what callers may write and what they read.
type Table struct {
	m          *Manager
	name       string
	visible    []string
	visibleSet map[string]struct{}
	selectList string
	maxRows    atomic.Int64

	create SchemaFunc
	alter  SchemaFunc

	// Optional capabilities
	cred      *Credentials
	immutable bool
}

// NewTable binds name with the given visible columns to m. The visible set
// must be non-empty, must not contain the primary key and must consist of
// plain identifiers.
func NewTable(m *Manager, name string, visible []string, opts ...Option) (*Table, error) {
	if m == nil {
		return nil, invalidArgument(name, "manager is nil")
	}
	if !validIdentifier(name) {
		return nil, invalidArgument("", "invalid table name %q", name)
	}
	if len(visible) == 0 {
		return nil, invalidArgument(name, "visible columns must not be empty")
	}

	t := &Table{
		m:          m,
		name:       name,
		visible:    slices.Clone(visible),
		visibleSet: make(map[string]struct{}, len(visible)),
	}
	for _, col := range t.visible {
		if !validIdentifier(col) {
			return nil, invalidArgument(name, "invalid column name %q", col)
		}
		if col == PrimaryKey {
			return nil, invalidArgument(name, "primary key %q must not be a visible column", PrimaryKey)
		}
		if _, dup := t.visibleSet[col]; dup {
			return nil, invalidArgument(name, "duplicate visible column %q", col)
		}
		t.visibleSet[col] = struct{}{}
	}
	t.selectList = quoteIdents(append([]string{PrimaryKey}, t.visible...))
	t.maxRows.Store(DefaultMaxRowsFetched)

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// TableName returns the bound table name.
func (t *Table) TableName() string {
	return t.name
}

// Visible returns a copy of the visible columns in whitelist order.
func (t *Table) Visible() []string {
	return slices.Clone(t.visible)
}

// Manager returns the manager this table is bound to.
func (t *Table) Manager() *Manager {
	return t.m
}

// MaxRowsFetched returns the current per-read row cap.
func (t *Table) MaxRowsFetched() int {
	return int(t.maxRows.Load())
}

// SetMaxRowsFetched changes the per-read row cap.
func (t *Table) SetMaxRowsFetched(n int) error {
	if n < 1 {
		return invalidArgument(t.name, "max rows fetched must be positive, got %d", n)
	}
	t.maxRows.Store(int64(n))
	return nil
}

// IsImmutable reports whether update and delete are disabled.
func (t *Table) IsImmutable() bool {
	return t.immutable
}

// Credentials returns the credential capability, if attached.
func (t *Table) Credentials() (*Credentials, bool) {
	return t.cred, t.cred != nil
}

// ListAll returns up to MaxRowsFetched rows ordered by primary key.
func (t *Table) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC LIMIT ?",
		t.selectList, quoteIdent(t.name), quoteIdent(PrimaryKey))

	records, err := t.m.queryRecords(ctx, query, t.MaxRowsFetched())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return records, nil
}

// List returns page (zero-based) of size n ordered by primary key. n may not
// exceed MaxRowsFetched.
func (t *Table) List(ctx context.Context, n, page int) ([]Record, error) {
	if n < 1 {
		return nil, invalidArgument(t.name, "page size must be positive, got %d", n)
	}
	if limit := t.MaxRowsFetched(); n > limit {
		return nil, invalidArgument(t.name, "page size %d exceeds max rows fetched %d", n, limit)
	}
	if page < 0 {
		return nil, invalidArgument(t.name, "page must not be negative, got %d", page)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC LIMIT ? OFFSET ?",
		t.selectList, quoteIdent(t.name), quoteIdent(PrimaryKey))

	records, err := t.m.queryRecords(ctx, query, n, int64(page)*int64(n))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return records, nil
}

// Fetch returns the row with the given primary key.
func (t *Table) Fetch(ctx context.Context, id int64) (Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		t.selectList, quoteIdent(t.name), quoteIdent(PrimaryKey))

	records, err := t.m.queryRecords(ctx, query, id)
	if err != nil {
		return Record{}, fmt.Errorf("failed to fetch %s: %w", t.name, err)
	}
	if len(records) == 0 {
		return Record{}, rowNotFound(t.name, id)
	}
	return records[0], nil
}

// Insert creates a row from values and returns it with its generated id.
// With the credential capability attached, values may also carry a
// plaintext "password" which is stored only as a hash.
func (t *Table) Insert(ctx context.Context, values Values) (Record, error) {
	values, password, hasPassword, err := t.splitPassword(values)
	if err != nil {
		return Record{}, err
	}
	cols, args, err := t.columnsFor(values)
	if err != nil {
		return Record{}, err
	}
	if hasPassword {
		hash, err := t.cred.hash(password)
		if err != nil {
			return Record{}, err
		}
		cols = append(cols, PasswordHashColumn)
		args = append(args, hash)
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			quoteIdent(t.name), t.selectList)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			quoteIdent(t.name), quoteIdents(cols), placeholders(len(cols)), t.selectList)
	}

	records, err := t.m.queryRecords(ctx, query, args...)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("failed to insert into %s: no row returned", t.name)
	}

	log.Trace().Str("table", t.name).Int64("id", records[0].ID).Msg("Inserted row")
	return records[0], nil
}

// Update sets the given visible columns on the row with id and returns the
// updated row.
func (t *Table) Update(ctx context.Context, id int64, values Values) (Record, error) {
	if t.immutable {
		return Record{}, immutableLedger(t.name, "update")
	}
	if len(values) == 0 {
		return Record{}, invalidArgument(t.name, "update requires at least one column")
	}
	cols, args, err := t.columnsFor(values)
	if err != nil {
		return Record{}, err
	}

	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = quoteIdent(col) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ? RETURNING %s",
		quoteIdent(t.name), strings.Join(assignments, ", "), quoteIdent(PrimaryKey), t.selectList)

	records, err := t.m.queryRecords(ctx, query, append(args, id)...)
	if err != nil {
		return Record{}, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	if len(records) == 0 {
		return Record{}, rowNotFound(t.name, id)
	}
	return records[0], nil
}

// Delete removes the row with id.
func (t *Table) Delete(ctx context.Context, id int64) error {
	if t.immutable {
		return immutableLedger(t.name, "delete")
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(t.name), quoteIdent(PrimaryKey))
	res, err := t.m.exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	return requireAffected(res, t.name, id)
}

// Create runs the create hook. A table without one does nothing.
func (t *Table) Create(ctx context.Context) error {
	if t.create == nil {
		return nil
	}
	return t.create(ctx, t)
}

// Alter runs the alter hook. A table without one does nothing.
func (t *Table) Alter(ctx context.Context) error {
	if t.alter == nil {
		return nil
	}
	return t.alter(ctx, t)
}

// Exec runs one raw statement for hooks and custom queries. Placeholders are
// written as ? and rebound for the driver.
func (t *Table) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := t.checkStatement(query); err != nil {
		return nil, err
	}
	res, err := t.m.exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement on %s: %w", t.name, err)
	}
	return res, nil
}

// columnsFor validates values against the whitelist and returns columns in
// whitelist order with their arguments.
func (t *Table) columnsFor(values Values) ([]string, []any, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := t.visibleSet[k]; !ok {
			return nil, nil, columnNotVisible(t.name, k)
		}
	}

	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, col := range t.visible {
		if v, ok := values[col]; ok {
			cols = append(cols, col)
			args = append(args, v)
		}
	}
	return cols, args, nil
}

// splitPassword removes the write-only password field when the credential
// capability is attached. Without it, password is just another column name
// and fails the whitelist.
func (t *Table) splitPassword(values Values) (Values, string, bool, error) {
	if t.cred == nil {
		return values, "", false, nil
	}
	raw, ok := values[PasswordField]
	if !ok {
		return values, "", false, nil
	}
	password, isString := raw.(string)
	if !isString {
		return nil, "", false, invalidArgument(t.name, "password must be a string, got %T", raw)
	}

	rest := make(Values, len(values)-1)
	for k, v := range values {
		if k != PasswordField {
			rest[k] = v
		}
	}
	return rest, password, true, nil
}

// checkStatement limits immutable tables to schema statements and plain
// inserts on the raw statement path. Anything else, including multiple
// statements in one call, is refused before a connection is acquired.
func (t *Table) checkStatement(query string) error {
	if !t.immutable {
		return nil
	}
	words, multiple := statementWords(query)
	if multiple {
		return immutableLedger(t.name, "more than one statement per call")
	}
	if len(words) == 0 {
		return nil
	}

	switch words[0] {
	case "CREATE":
		if slices.Contains(words, "TRIGGER") || slices.Contains(words, "RULE") {
			return immutableLedger(t.name, "create trigger")
		}
		return nil
	case "ALTER":
		return nil
	case "DROP":
		if len(words) > 1 && words[1] == "INDEX" {
			return nil
		}
	case "INSERT":
		if hasWordSeq(words, "OR", "REPLACE") {
			return immutableLedger(t.name, "insert or replace")
		}
		if i := slices.Index(words, "CONFLICT"); i >= 0 && hasWordSeq(words[i:], "DO", "UPDATE") {
			return immutableLedger(t.name, "upsert")
		}
		return nil
	case "UPDATE":
		return immutableLedger(t.name, "update")
	case "DELETE":
		return immutableLedger(t.name, "delete")
	}
	return immutableLedger(t.name, strings.ToLower(strings.Join(words[:min(2, len(words))], " ")))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func requireAffected(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", table, err)
	}
	if n == 0 {
		return rowNotFound(table, id)
	}
	return nil
}
