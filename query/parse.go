package query

import "strings"

// ParsedQuery is a SQL statement with its `?` and `:name` placeholders
// located, so a caller can bind positional or named values without
// re-scanning the string for every execute (spec.md §4.8 "Named
// parameters"). Scanning is string/backtick/comment-aware: placeholder
// markers inside a string literal, a backtick identifier, or a comment
// are not placeholders. Grounded on this package's own Normalize/
// normalizeString character-class scanning style, extended to also
// recognize double-quoted strings, backtick identifiers, and comments,
// none of which Normalize needed to distinguish.
type ParsedQuery struct {
	SQL   string
	names []string // one entry per placeholder, "" for a bare `?`
}

// Options configures dialect-dependent scanning behavior (spec.md
// §4.8's ANSI_QUOTES / NO_BACKSLASH_ESCAPES switches).
type Options struct {
	// ANSIQuotes treats "..." as a string literal rather than a quoted
	// identifier.
	ANSIQuotes bool
	// NoBackslashEscapes disables backslash-escaping of quote
	// characters inside string literals; only doubling escapes them.
	NoBackslashEscapes bool
}

// Parse scans sql for placeholders under opts.
func Parse(sql string, opts Options) *ParsedQuery {
	p := &ParsedQuery{SQL: sql}

	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '\'':
			i = skipString(sql, i, '\'', opts.NoBackslashEscapes)
		case c == '"' && opts.ANSIQuotes:
			i = skipString(sql, i, '"', opts.NoBackslashEscapes)
		case c == '"' && !opts.ANSIQuotes:
			i = skipQuoted(sql, i, '"')
		case c == '`':
			i = skipQuoted(sql, i, '`')
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLineComment(sql, i)
		case c == '#':
			i = skipLineComment(sql, i)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = skipBlockComment(sql, i)
		case c == '?':
			p.names = append(p.names, "")
			i++
		case c == ':' && i+1 < len(sql) && isNameStart(sql[i+1]):
			name, next := scanName(sql, i+1)
			p.names = append(p.names, name)
			i = next
		default:
			i++
		}
	}

	return p
}

// PlaceholderCount returns the number of positional slots the query
// has (spec.md §4.8's `placeholder_count`): every `?` and every
// distinct or repeated `:name` each occupy one slot.
func (p *ParsedQuery) PlaceholderCount() int {
	return len(p.names)
}

// IndexesOf returns every 0-based slot index bound to the given named
// parameter (spec.md §4.8's `indexes_of(name)`), in ascending order. A
// bare `?` never matches a name.
func (p *ParsedQuery) IndexesOf(name string) []int {
	var out []int
	for i, n := range p.names {
		if n == name {
			out = append(out, i)
		}
	}
	return out
}

func skipString(sql string, pos int, quote byte, noBackslashEscapes bool) int {
	j := pos + 1
	for j < len(sql) {
		if !noBackslashEscapes && sql[j] == '\\' && j+1 < len(sql) {
			j += 2
			continue
		}
		if sql[j] == quote && j+1 < len(sql) && sql[j+1] == quote {
			j += 2
			continue
		}
		if sql[j] == quote {
			return j + 1
		}
		j++
	}
	return j
}

func skipQuoted(sql string, pos int, quote byte) int {
	j := pos + 1
	for j < len(sql) {
		if sql[j] == quote && j+1 < len(sql) && sql[j+1] == quote {
			j += 2
			continue
		}
		if sql[j] == quote {
			return j + 1
		}
		j++
	}
	return j
}

func skipLineComment(sql string, pos int) int {
	j := strings.IndexByte(sql[pos:], '\n')
	if j < 0 {
		return len(sql)
	}
	return pos + j + 1
}

func skipBlockComment(sql string, pos int) int {
	end := strings.Index(sql[pos+2:], "*/")
	if end < 0 {
		return len(sql)
	}
	return pos + 2 + end + 2
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func scanName(sql string, pos int) (string, int) {
	j := pos
	for j < len(sql) && isNameChar(sql[j]) {
		j++
	}
	return sql[pos:j], j
}
