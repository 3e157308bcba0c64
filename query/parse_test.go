package query

import (
	"reflect"
	"testing"
)

func TestParsePositional(t *testing.T) {
	t.Parallel()

	p := Parse("SELECT * FROM users WHERE id = ? AND name = ?", Options{})
	if p.PlaceholderCount() != 2 {
		t.Fatalf("expected 2 placeholders, got %d", p.PlaceholderCount())
	}
}

func TestParseNamedIndexes(t *testing.T) {
	t.Parallel()

	p := Parse("WHERE a = :id OR b = :id OR c = :other", Options{})
	if got := p.IndexesOf("id"); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("IndexesOf(id) = %v, want [0 1]", got)
	}
	if got := p.IndexesOf("other"); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("IndexesOf(other) = %v, want [2]", got)
	}
	if got := p.IndexesOf("missing"); got != nil {
		t.Fatalf("IndexesOf(missing) = %v, want nil", got)
	}
	if p.PlaceholderCount() != 3 {
		t.Fatalf("expected 3 placeholders, got %d", p.PlaceholderCount())
	}
}

func TestParseIgnoresPlaceholdersInStrings(t *testing.T) {
	t.Parallel()

	p := Parse(`SELECT '?' , ':name', "literal?" FROM t WHERE x = ?`, Options{})
	if p.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder, got %d", p.PlaceholderCount())
	}
}

func TestParseIgnoresPlaceholdersInANSIQuotedString(t *testing.T) {
	t.Parallel()

	p := Parse(`SELECT "has a ? in it" FROM t WHERE x = ?`, Options{ANSIQuotes: true})
	if p.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder, got %d", p.PlaceholderCount())
	}
}

func TestParseIgnoresPlaceholdersInBacktickIdentifier(t *testing.T) {
	t.Parallel()

	p := Parse("SELECT `col?name` FROM t WHERE x = ?", Options{})
	if p.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder, got %d", p.PlaceholderCount())
	}
}

func TestParseIgnoresPlaceholdersInComments(t *testing.T) {
	t.Parallel()

	sql := "SELECT x -- where id = ?\n FROM t WHERE y = ? /* and z = ? */ AND w = ?"
	p := Parse(sql, Options{})
	if p.PlaceholderCount() != 2 {
		t.Fatalf("expected 2 placeholders, got %d", p.PlaceholderCount())
	}
}

func TestParseHandlesEscapedQuoteInString(t *testing.T) {
	t.Parallel()

	p := Parse(`SELECT 'it''s a ? test' WHERE x = ?`, Options{})
	if p.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder, got %d", p.PlaceholderCount())
	}
}

func TestParseHandlesBackslashEscapeUnlessDisabled(t *testing.T) {
	t.Parallel()

	sql := `SELECT 'a \' ? b' WHERE x = ?`
	withEscape := Parse(sql, Options{})
	if withEscape.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder with backslash escapes enabled, got %d", withEscape.PlaceholderCount())
	}

	withoutEscape := Parse(`SELECT 'a \' WHERE x = ?`, Options{NoBackslashEscapes: true})
	if withoutEscape.PlaceholderCount() != 1 {
		t.Fatalf("expected 1 placeholder with backslash escapes disabled, got %d", withoutEscape.PlaceholderCount())
	}
}

func TestParseNoPlaceholders(t *testing.T) {
	t.Parallel()

	p := Parse("SELECT 1", Options{})
	if p.PlaceholderCount() != 0 {
		t.Fatalf("expected 0 placeholders, got %d", p.PlaceholderCount())
	}
}
