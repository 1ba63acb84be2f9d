package pgexec

import (
	"regexp"
	"strings"
)

var (
	returningPattern = regexp.MustCompile(`\breturning\b`)
	selectPattern    = regexp.MustCompile(`\bselect\b`)
	readPrefix       = regexp.MustCompile(`^(select|with|values|show|table|explain)\b`)
	commandPrefix    = regexp.MustCompile(`^(create|alter|drop|truncate|grant|revoke|copy|call|do|lock|vacuum|analyze|refresh|reindex|cluster|comment|set|reset|discard|listen|unlisten|notify|begin|commit|rollback|savepoint|release|prepare|execute|deallocate)\b`)
	mutationPattern  = regexp.MustCompile(`\b(insert\s+into|delete\s+from|merge\s+into|update|truncate)\b`)
	rowLockClause    = regexp.MustCompile(`\bfor\s+(no\s+key\s+)?update\b`)
)

// ResolveExecuteType returns the concrete execution mode for query.
// Explicit modes are returned unchanged. For ExecuteTypeAuto the statement
// text is matched case-insensitively:
//
//   - a RETURNING clause means the statement yields rows (Reader);
//   - a statement starting with a DDL or utility keyword (CREATE, DROP,
//     SET, VACUUM, ...) is a NonQuery;
//   - INSERT INTO, UPDATE, DELETE FROM, MERGE INTO or TRUNCATE anywhere in
//     the text is a NonQuery (SELECT ... FOR UPDATE is not a mutation);
//   - a SELECT, or a statement starting with WITH, VALUES, SHOW, TABLE or
//     EXPLAIN, is a Reader;
//   - anything else is a NonQuery.
//
// This is a best-effort pattern match, not a parse. Comments, quoted
// identifiers and string literals (E'' escapes and dollar quoting included)
// are ignored, but unusual statements can still be misclassified,
// e.g. a data-modifying CTE without RETURNING or a SELECT calling a function
// with side effects. Pass an explicit mode when it matters.
func ResolveExecuteType(query string, t ExecuteType) ExecuteType {
	if t != ExecuteTypeAuto {
		return t
	}

	text := strings.ToLower(stripNoise(query))

	if returningPattern.MatchString(text) {
		return ExecuteTypeReader
	}
	if commandPrefix.MatchString(text) {
		return ExecuteTypeNonQuery
	}
	if mutationPattern.MatchString(rowLockClause.ReplaceAllString(text, " ")) {
		return ExecuteTypeNonQuery
	}
	if readPrefix.MatchString(text) || selectPattern.MatchString(text) {
		return ExecuteTypeReader
	}
	return ExecuteTypeNonQuery
}

// stripNoise removes comments, quoted identifiers and string literals and
// trims whitespace, so keywords inside them don't influence detection.
// Literals become '' so the statement shape is kept.
func stripNoise(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	q := query
	for i := 0; i < len(q); {
		switch c := q[i]; {
		case strings.HasPrefix(q[i:], "--"):
			end := strings.IndexByte(q[i:], '\n')
			if end < 0 {
				end = len(q) - i
			}
			i += end
			b.WriteByte(' ')
		case strings.HasPrefix(q[i:], "/*"):
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				i = len(q)
			} else {
				i += end + 4
			}
			b.WriteByte(' ')
		case c == '\'':
			i = skipQuoted(q, i+1, '\'', escapeString(q, i))
			b.WriteString("''")
		case c == '"':
			i = skipQuoted(q, i+1, '"', false)
			b.WriteString("''")
		case c == '$' && (i == 0 || !isIdentByte(q[i-1])):
			tag := dollarTag(q[i:])
			if tag == "" {
				b.WriteByte(c)
				i++
				continue
			}
			end := strings.Index(q[i+len(tag):], tag)
			if end < 0 {
				i = len(q)
			} else {
				i += 2*len(tag) + end
			}
			b.WriteString("''")
		default:
			b.WriteByte(c)
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

// skipQuoted returns the index just past the closing quote of a literal
// whose body starts at i. A doubled quote is part of the body, and so is a
// backslash escape when backslash is set.
func skipQuoted(q string, i int, quote byte, backslash bool) int {
	for i < len(q) {
		switch {
		case backslash && q[i] == '\\':
			i += 2
		case q[i] == quote && i+1 < len(q) && q[i+1] == quote:
			i += 2
		case q[i] == quote:
			return i + 1
		default:
			i++
		}
	}
	return len(q)
}

// escapeString reports whether the quote at i opens an E'...' literal.
func escapeString(q string, i int) bool {
	if i == 0 || (q[i-1] != 'e' && q[i-1] != 'E') {
		return false
	}
	return i == 1 || !isIdentByte(q[i-2])
}

// dollarTag returns the $tag$ opening a dollar quoted literal at the start
// of s, or "" when s starts with something else, such as a $1 placeholder.
func dollarTag(s string) string {
	j := 1
	if j < len(s) && (s[j] == '_' || isLetter(s[j])) {
		for j < len(s) && isIdentByte(s[j]) {
			j++
		}
	}
	if j < len(s) && s[j] == '$' {
		return s[:j+1]
	}
	return ""
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c >= 0x80
}

func isIdentByte(c byte) bool {
	return isLetter(c) || '0' <= c && c <= '9' || c == '_' || c == '$'
}
