package database

import (
	"regexp"
	"strings"
)

// Identifiers cannot be bound as parameters, so every table and column name
// is checked against this pattern before it is quoted into a statement.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const maxIdentifierLength = 63

func validIdentifier(name string) bool {
	return len(name) <= maxIdentifierLength && identifierPattern.MatchString(name)
}

// quoteIdent quotes an identifier that already passed validIdentifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
