package database

import (
	"context"
	"strings"
	"testing"
)

func TestSplitSQLStatements(t *testing.T) {
	script := `
		-- products
		CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE INDEX products_name_idx ON products (name);
		ANALYZE
	`

	got := splitSQLStatements(script)
	if len(got) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX products_name_idx ON products (name);" {
		t.Fatalf("unexpected second statement %q", got[1])
	}
	if got[2] != "ANALYZE" {
		t.Fatalf("expected trailing statement without semicolon, got %q", got[2])
	}
}

func TestSplitSQLStatements_Empty(t *testing.T) {
	if got := splitSQLStatements("\n  -- nothing here\n;\n"); len(got) != 0 {
		t.Fatalf("expected no statements, got %q", got)
	}
}

func TestSplitSQLStatements_KeepsBlocksAndQuotedText(t *testing.T) {
	script := `
		CREATE TABLE audit (id INTEGER PRIMARY KEY, note TEXT);
		CREATE TRIGGER products_audit AFTER INSERT ON products
		BEGIN
			INSERT INTO audit (note) VALUES ('added; ' || CASE WHEN NEW.price > 10 THEN 'pricey' ELSE 'cheap' END);
			INSERT INTO audit (note) VALUES ('done');
		END;
		INSERT INTO audit (note) VALUES ('it''s; fine'); /* trailing; comment */
		BEGIN;
	`

	got := splitSQLStatements(script)
	if len(got) != 4 {
		t.Fatalf("expected 4 statements, got %d: %q", len(got), got)
	}
	if !strings.HasPrefix(got[1], "CREATE TRIGGER") || !strings.HasSuffix(got[1], "END;") {
		t.Fatalf("trigger body was split: %q", got[1])
	}
	if got[2] != "INSERT INTO audit (note) VALUES ('it''s; fine');" {
		t.Fatalf("unexpected quoted statement %q", got[2])
	}
	if got[3] != "BEGIN;" {
		t.Fatalf("expected bare BEGIN statement, got %q", got[3])
	}
}

func TestExecScript_CreatesTrigger(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	products := newProducts(t, m)

	err := products.ExecScript(ctx, `
		CREATE TABLE audit (id INTEGER PRIMARY KEY, note TEXT);
		CREATE TRIGGER products_audit AFTER INSERT ON products
		BEGIN
			INSERT INTO audit (note) VALUES ('added; ' || NEW.name);
		END;
	`)
	if err != nil {
		t.Fatalf("exec script: %v", err)
	}

	if _, err := products.Insert(ctx, Values{"name": "Widget", "price": 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	values, err := m.querySlice(ctx, "SELECT note FROM audit")
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	if got := nullStringValue(values[0]); got != "added; Widget" {
		t.Fatalf("unexpected audit note %q", got)
	}
}
