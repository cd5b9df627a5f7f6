package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// ExecScript splits a multi-statement DDL script on statement-ending
// semicolons and executes the statements in order on one connection. It
// stops at the first failing statement.
func (t *Table) ExecScript(ctx context.Context, script string) error {
	statements := splitSQLStatements(script)
	for _, stmt := range statements {
		if err := t.checkStatement(stmt); err != nil {
			return err
		}
	}

	return t.m.withConn(ctx, func(c *sqlx.Conn) error {
		for i, stmt := range statements {
			log.Trace().Str("table", t.name).Int("statement", i+1).Msg("Executing script statement")
			if _, err := c.ExecContext(ctx, t.m.conn.Rebind(stmt)); err != nil {
				return fmt.Errorf("%s script statement %d failed: %w", t.name, i+1, classify("execute statement", err))
			}
		}
		return nil
	})
}

// splitSQLStatements splits a script on statement-ending semicolons.
// Semicolons inside quoted text, comments and trigger BEGIN ... END bodies do
// not end a statement. Comment-only and empty statements are dropped.
func splitSQLStatements(script string) []string {
	var statements []string
	start, last, depth := -1, 0, 0
	first := ""

	for _, tok := range tokenizeSQL(script) {
		if tok.kind == tokSemicolon {
			if start >= 0 && depth == 0 {
				statements = append(statements, strings.TrimSpace(script[start:tok.end]))
				start, first = -1, ""
			}
			continue
		}
		if start < 0 {
			start, first = tok.start, strings.ToUpper(tok.text)
		}
		last = tok.end
		if tok.kind != tokWord {
			continue
		}

		switch strings.ToUpper(tok.text) {
		case "BEGIN":
			// A bare BEGIN opens a transaction, not a block
			if first == "CREATE" {
				depth++
			}
		case "CASE":
			depth++
		case "END":
			if depth > 0 {
				depth--
			}
		}
	}

	if start >= 0 {
		statements = append(statements, strings.TrimSpace(script[start:last]))
	}
	return statements
}
