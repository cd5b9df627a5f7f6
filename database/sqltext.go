package database

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokSemicolon
	tokOther
)

// sqlToken is one lexical unit of a statement. Comments and whitespace
// produce no tokens.
type sqlToken struct {
	kind       tokenKind
	text       string
	start, end int
}

// tokenizeSQL splits query into words, quoted runs ('..', "..", `..` and
// $tag$..$tag$), semicolons and single punctuation bytes.
func tokenizeSQL(query string) []sqlToken {
	var toks []sqlToken
	add := func(kind tokenKind, start, end int) {
		toks = append(toks, sqlToken{kind: kind, text: query[start:end], start: start, end: end})
	}

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case strings.HasPrefix(query[i:], "--"):
			if j := strings.IndexByte(query[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = len(query)
			}
		case strings.HasPrefix(query[i:], "/*"):
			if j := strings.Index(query[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(query)
			}
		case c == '\'' || c == '"' || c == '`':
			end := quotedEnd(query, i)
			add(tokQuoted, i, end)
			i = end
		case c == '$':
			tag, ok := dollarTag(query[i:])
			if !ok {
				add(tokOther, i, i+1)
				i++
				continue
			}
			end := len(query)
			if j := strings.Index(query[i+len(tag):], tag); j >= 0 {
				end = i + len(tag) + j + len(tag)
			}
			add(tokQuoted, i, end)
			i = end
		case c == ';':
			add(tokSemicolon, i, i+1)
			i++
		case isWordByte(c):
			j := i + 1
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			add(tokWord, i, j)
			i = j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		default:
			add(tokOther, i, i+1)
			i++
		}
	}
	return toks
}

// quotedEnd returns the index just past the quote opened at query[start].
// A doubled quote character is an escaped quote.
func quotedEnd(query string, start int) int {
	q := query[start]
	for j := start + 1; j < len(query); j++ {
		if query[j] != q {
			continue
		}
		if j+1 < len(query) && query[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(query)
}

// dollarTag returns the opening $tag$ of a dollar-quoted string. $1 style
// placeholders are not tags.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '$':
			return s[:j+1], true
		case c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z'):
		case c >= '0' && c <= '9' && j > 1:
		default:
			return "", false
		}
	}
	return "", false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// statementWords returns the upper-cased bare words of query and reports
// whether anything follows a semicolon, i.e. query holds more than one
// statement.
func statementWords(query string) (words []string, multiple bool) {
	terminated := false
	for _, tok := range tokenizeSQL(query) {
		if tok.kind == tokSemicolon {
			terminated = true
			continue
		}
		if terminated {
			multiple = true
		}
		if tok.kind == tokWord {
			words = append(words, strings.ToUpper(tok.text))
		}
	}
	return words, multiple
}

// hasWordSeq reports whether seq appears as consecutive entries of words.
func hasWordSeq(words []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(words); i++ {
		match := true
		for j, w := range seq {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
