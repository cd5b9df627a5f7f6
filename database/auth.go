package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordField is the write-only key Insert accepts on auth tables.
	PasswordField = "password"
	// PasswordHashColumn is the hidden column holding the hash.
	PasswordHashColumn = "password_hash"
	// DefaultIdentityColumn identifies users when no column is given.
	DefaultIdentityColumn = "email"
	// BcryptCost is the bcrypt cost factor used by the default hasher.
	BcryptCost = 12
)

// Hasher is the one-way password primitive used by the credential capability.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(hash, plaintext string) bool
}

// BcryptHasher hashes with bcrypt. A zero Cost means BcryptCost.
type BcryptHasher struct {
	Cost int
}

// Hash hashes a password using bcrypt.
func (h BcryptHasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = BcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare verifies a password against a hash.
func (h BcryptHasher) Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Credentials is the credential capability of a table: password hashing on
// insert, verification by identity column, and password rotation.
type Credentials struct {
	t        *Table
	identity string
	hasher   Hasher

	dummyOnce sync.Once
	dummyHash string
}

// WithCredentials attaches the credential capability keyed by identity
// (DefaultIdentityColumn when empty).
func WithCredentials(identity string) Option {
	return func(t *Table) error {
		if identity == "" {
			identity = DefaultIdentityColumn
		}
		if !validIdentifier(identity) || identity == PasswordHashColumn {
			return invalidArgument(t.name, "invalid identity column %q", identity)
		}
		for _, hidden := range []string{PasswordField, PasswordHashColumn} {
			if _, ok := t.visibleSet[hidden]; ok {
				return invalidArgument(t.name, "%q must not be a visible column", hidden)
			}
		}
		t.cred = &Credentials{t: t, identity: identity, hasher: BcryptHasher{}}
		return nil
	}
}

// WithHasher replaces the default bcrypt hasher. It must follow
// WithCredentials (NewAuthTable takes care of that).
func WithHasher(h Hasher) Option {
	return func(t *Table) error {
		if t.cred == nil {
			return invalidArgument(t.name, "hasher requires the credential capability")
		}
		if h == nil {
			return invalidArgument(t.name, "hasher is nil")
		}
		t.cred.hasher = h
		return nil
	}
}

// AuthTable is a Table with the credential capability attached.
type AuthTable struct {
	*Table
	*Credentials
}

// NewAuthTable binds an auth table. The physical table needs a
// password_hash column and the identity column; the identity column may or
// may not be visible.
func NewAuthTable(m *Manager, name string, visible []string, identity string, opts ...Option) (*AuthTable, error) {
	t, err := NewTable(m, name, visible, append([]Option{WithCredentials(identity)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &AuthTable{Table: t, Credentials: t.cred}, nil
}

// IdentityColumn returns the column users are looked up by.
func (c *Credentials) IdentityColumn() string {
	return c.identity
}

// UpdatePassword replaces the stored hash for the row with id. This is the
// only way to change a password.
func (c *Credentials) UpdatePassword(ctx context.Context, id int64, plaintext string) error {
	if c.t.immutable {
		return immutableLedger(c.t.name, "update")
	}
	hash, err := c.hash(plaintext)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		quoteIdent(c.t.name), quoteIdent(PasswordHashColumn), quoteIdent(PrimaryKey))
	res, err := c.t.m.exec(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password on %s: %w", c.t.name, err)
	}
	return requireAffected(res, c.t.name, id)
}

// VerifyPassword reports whether plaintext matches the stored hash of the row
// whose identity column equals identity. Unknown identities report false
// rather than an error.
func (c *Credentials) VerifyPassword(ctx context.Context, identity any, plaintext string) (bool, error) {
	_, err := c.authenticate(ctx, identity, plaintext, nil)
	if errors.Is(err, ErrAuthenticationFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FetchAfterAuth verifies the credentials and, only on success, returns the
// requested fields of the authenticated row. No fields means all visible
// columns; "id" is accepted and always available as Record.ID.
func (c *Credentials) FetchAfterAuth(ctx context.Context, identity any, plaintext string, fields []string) (Record, error) {
	cols, err := c.requestedColumns(fields)
	if err != nil {
		return Record{}, err
	}

	values, err := c.authenticate(ctx, identity, plaintext, cols)
	if err != nil {
		return Record{}, err
	}
	return newRecord(append([]string{PrimaryKey}, cols...), values)
}

// IDAfterAuth verifies the credentials and returns the row's primary key.
func (c *Credentials) IDAfterAuth(ctx context.Context, identity any, plaintext string) (int64, error) {
	values, err := c.authenticate(ctx, identity, plaintext, nil)
	if err != nil {
		return 0, err
	}
	return toInt64(values[0])
}

// authenticate reads id, the hash and cols in one statement and compares
// the hash in process. It returns id followed by cols.
func (c *Credentials) authenticate(ctx context.Context, identity any, plaintext string, cols []string) ([]any, error) {
	if identity == nil {
		return nil, invalidArgument(c.t.name, "identity value is required")
	}

	selected := append([]string{PrimaryKey, PasswordHashColumn}, cols...)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		quoteIdents(selected), quoteIdent(c.t.name), quoteIdent(c.identity))

	values, err := c.t.m.querySlice(ctx, query, identity)
	if errors.Is(err, sql.ErrNoRows) {
		// Spend the same hashing work as a real comparison
		c.hasher.Compare(c.dummy(), plaintext)
		return nil, authenticationFailed(c.t.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate on %s: %w", c.t.name, err)
	}

	hash := nullStringValue(values[1])
	if hash == "" || !c.hasher.Compare(hash, plaintext) {
		return nil, authenticationFailed(c.t.name)
	}
	return append([]any{values[0]}, values[2:]...), nil
}

func (c *Credentials) requestedColumns(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return slices.Clone(c.t.visible), nil
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == PrimaryKey {
			continue
		}
		if _, ok := c.t.visibleSet[f]; !ok {
			return nil, columnNotVisible(c.t.name, f)
		}
		if !slices.Contains(cols, f) {
			cols = append(cols, f)
		}
	}
	return cols, nil
}

func (c *Credentials) hash(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", invalidArgument(c.t.name, "password must not be empty")
	}
	hash, err := c.hasher.Hash(plaintext)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalidArgument(c.t.name, "password exceeds 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		// Any well-formed hash works; its plaintext is never checked
		c.dummyHash, _ = c.hasher.Hash("norm-dummy-password")
	})
	return c.dummyHash
}
