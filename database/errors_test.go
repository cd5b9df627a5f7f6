package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("failed to fetch products: %w", rowNotFound("products", 7))

	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected wrapped error to match ErrRowNotFound, got %v", err)
	}
	if errors.Is(err, ErrColumnNotVisible) {
		t.Fatal("row not found must not match column not visible")
	}
	if got := rowNotFound("products", 7).Error(); got != "products: no row with id 7" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestError_MessageFallsBackToKind(t *testing.T) {
	if got := ErrImmutableLedger.Error(); got != "immutable ledger" {
		t.Fatalf("unexpected sentinel message %q", got)
	}
}

func TestClassify(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.email")
	if got := classify("insert", cause); got != cause {
		t.Fatalf("statement errors must pass through unchanged, got %v", got)
	}

	got := classify("execute query", context.DeadlineExceeded)
	if !errors.Is(got, ErrConnection) {
		t.Fatalf("expected deadline to be a connection error, got %v", got)
	}
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatal("connection error must keep its cause")
	}

	already := columnNotVisible("users", "x")
	if got := classify("insert", already); got != already {
		t.Fatalf("binding errors must not be reclassified, got %v", got)
	}

	if classify("noop", nil) != nil {
		t.Fatal("nil stays nil")
	}
}
