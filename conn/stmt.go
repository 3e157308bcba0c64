package conn

import (
	"context"

	"github.com/mickamy/mysqlwire/flow"
	"github.com/mickamy/mysqlwire/result"
)

// Binding and Slot are re-exported so callers never import flow
// directly; conn is the only package application code depends on.
type Binding = flow.Binding
type Slot = flow.Slot

// Bind and BindNull construct one parameter slot (spec.md §3
// "Bindings").
func Bind(typ byte, unsigned bool, value []byte) Slot { return flow.Bind(typ, unsigned, value) }
func BindNull(typ byte) Slot                          { return flow.BindNull(typ) }

// Stmt is a prepared statement allocated on one Conn. It is not safe
// for concurrent use, matching the connection's own single-exchange
// discipline (spec.md §4.7).
type Stmt struct {
	conn *Conn
	stmt *flow.Statement
}

// ParamCount is the number of parameter placeholders the server
// reported when the statement was prepared.
func (s *Stmt) ParamCount() int { return s.stmt.ParamCount }

// ColCount is the number of result columns the statement produces, or
// zero for a statement with no result set.
func (s *Stmt) ColCount() int { return s.stmt.ColCount }

// Execute runs COM_STMT_EXECUTE with binding (spec.md §4.8 step 4).
// binding must be Complete; an incomplete binding is a client mistake,
// not a protocol condition, and is the caller's responsibility to
// avoid (spec.md §3's "A batch is complete when no slot is unset").
func (s *Stmt) Execute(ctx context.Context, binding Binding) (*result.Set, error) {
	return flow.Execute(ctx, s.conn.engine, s.conn.dctx, s.stmt, binding)
}

// Close sends COM_STMT_CLOSE, deallocating the statement id on the
// server (spec.md §4.8 step 5).
func (s *Stmt) Close(ctx context.Context) error {
	return flow.Close(ctx, s.conn.engine, s.stmt)
}
