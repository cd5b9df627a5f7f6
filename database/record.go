package database

import (
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Field is one visible column value of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is one row as seen through a binding: the primary key plus the
// visible columns, in whitelist order. Hidden columns never appear.
type Record struct {
	ID     int64
	Fields []Field
}

// Get returns the value of a visible column.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names present in the record, in order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Map returns the visible fields keyed by column name.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// Values is the input to Insert and Update, keyed by column name.
type Values map[string]any

func scanRecords(rows *sqlx.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []Record
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		rec, err := newRecord(cols, values)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// newRecord builds a Record from a row whose first column is the primary key.
func newRecord(cols []string, values []any) (Record, error) {
	if len(cols) == 0 || len(cols) != len(values) {
		return Record{}, fmt.Errorf("unexpected row shape: %d columns, %d values", len(cols), len(values))
	}
	id, err := toInt64(values[0])
	if err != nil {
		return Record{}, fmt.Errorf("failed to read %s: %w", PrimaryKey, err)
	}

	rec := Record{ID: id, Fields: make([]Field, 0, len(cols)-1)}
	for i := 1; i < len(cols); i++ {
		rec.Fields = append(rec.Fields, Field{Name: cols[i], Value: normalizeValue(values[i])})
	}
	return rec, nil
}

// normalizeValue converts driver byte slices to strings so text columns
// compare naturally regardless of driver.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported key type %T", v)
	}
}

// nullStringValue converts a scanned value to a string (empty if NULL).
func nullStringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
