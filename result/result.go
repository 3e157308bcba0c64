// Package result holds the result windows a query flow (H) produces:
// affected-row counts, generated keys, and row streams with both
// positional and case-insensitive name-based field access (spec.md
// §4.9).
package result

import (
	"context"
	"sort"
	"strings"

	"github.com/mickamy/mysqlwire/protocol"
)

// Column describes one result-set column the way a row's fields need
// to be looked up and interpreted.
type Column struct {
	Name     string
	Type     byte
	Unsigned bool
}

// Columns is an immutable, name-searchable column list shared by every
// row in one result set.
type Columns struct {
	cols  []Column
	order []int // indices into cols, sorted by strings.ToLower(cols[i].Name)
}

// NewColumns builds a Columns value, pre-sorting for name lookup.
func NewColumns(cols []Column) *Columns {
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return strings.ToLower(cols[order[a]].Name) < strings.ToLower(cols[order[b]].Name)
	})
	return &Columns{cols: cols, order: order}
}

// Len returns the number of columns.
func (c *Columns) Len() int { return len(c.cols) }

// At returns the column at the given 0-based index.
func (c *Columns) At(i int) Column { return c.cols[i] }

// IndexOf resolves name to a column index via case-insensitive lookup.
// When multiple columns share the same name under case folding, an
// exact case match wins; otherwise the first such column (in original
// declaration order) is returned, matching spec.md §4.9's "lookup via
// a sorted-name array with binary search, tie-broken case-sensitively".
func (c *Columns) IndexOf(name string) (int, bool) {
	lower := strings.ToLower(name)
	n := len(c.order)
	start := sort.Search(n, func(i int) bool {
		return strings.ToLower(c.cols[c.order[i]].Name) >= lower
	})
	if start == n || strings.ToLower(c.cols[c.order[start]].Name) != lower {
		return 0, false
	}
	end := start
	for end < n && strings.ToLower(c.cols[c.order[end]].Name) == lower {
		end++
	}
	best := c.order[start]
	for i := start; i < end; i++ {
		idx := c.order[i]
		if c.cols[idx].Name == name {
			return idx, true
		}
	}
	return best, true
}

// Row is one decoded result row: field values keyed by a shared
// Columns index.
type Row struct {
	Columns *Columns
	Fields  []protocol.Field
}

// Field returns the field at the given 0-based column index.
func (r Row) Field(i int) (protocol.Field, bool) {
	if i < 0 || i >= len(r.Fields) {
		return protocol.Field{}, false
	}
	return r.Fields[i], true
}

// FieldByName resolves a case-insensitive column name to its field.
func (r Row) FieldByName(name string) (protocol.Field, bool) {
	idx, ok := r.Columns.IndexOf(name)
	if !ok {
		return protocol.Field{}, false
	}
	return r.Field(idx)
}

// Set is one statement's result: either a row stream, or affected-row/
// generated-key counts, never both (spec.md §4.9).
type Set struct {
	Columns *Columns

	// Populated when the statement produced rows (a COM_QUERY SELECT,
	// or the analogous prepared execute).
	RowCh <-chan Row

	// Populated when the statement terminated with an OK instead of a
	// result set.
	affectedRows    uint64
	hasAffectedRows bool
	lastInsertID    uint64
	hasLastInsertID bool

	cancel func()
	next   func(context.Context) (*Set, error)
}

// NewRowsSet wraps a row channel as a result set.
func NewRowsSet(cols *Columns, rows <-chan Row) *Set {
	return &Set{Columns: cols, RowCh: rows}
}

// BindCancel attaches the function that stops this set's row stream
// early; called by the flow package once the owning exchange is known,
// since result itself has no engine reference.
func (s *Set) BindCancel(cancel func()) {
	s.cancel = cancel
}

// Cancel stops consuming this result's row stream early (spec.md §8
// scenario 4, "subscriber cancels after consuming 1 row"): the engine
// drains and discards the statement's remaining rows itself and admits
// the next exchange once that drain completes. Only meaningful while
// RowCh is still being read; calling it after the stream has already
// closed, or after starting a later exchange on the same connection,
// has no effect on this result.
func (s *Set) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// BindNext attaches the function that fetches this connection's next
// result window in a semicolon-joined multi-statement batch (spec.md
// §4.8); called by the flow package once the owning subscriber is
// known, since result itself has no exchange reference.
func (s *Set) BindNext(next func(context.Context) (*Set, error)) {
	s.next = next
}

// NextResult fetches the next window of a multi-statement batch. It
// returns a nil Set and nil error once no window follows. Only
// meaningful after this window's RowCh, if any, has been fully
// drained -- the server doesn't send the next window's header until
// this one's rows are consumed off the wire.
func (s *Set) NextResult(ctx context.Context) (*Set, error) {
	if s.next == nil {
		return nil, nil
	}
	return s.next(ctx)
}

// NewOKSet wraps an OK message's counters as a result set.
func NewOKSet(ok *protocol.OK) *Set {
	return &Set{
		affectedRows:    ok.AffectedRows,
		hasAffectedRows: true,
		lastInsertID:    ok.LastInsertID,
		hasLastInsertID: ok.LastInsertID != 0,
	}
}

// RowsUpdated returns OK.affected_rows, if this set came from an OK
// message (spec.md §4.9).
func (s *Set) RowsUpdated() (uint64, bool) {
	return s.affectedRows, s.hasAffectedRows
}

// GeneratedKeys returns OK.last_insert_id, if non-zero (spec.md §4.9).
func (s *Set) GeneratedKeys() (uint64, bool) {
	return s.lastInsertID, s.hasLastInsertID
}
