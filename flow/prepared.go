package flow

import (
	"context"

	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/exchange"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/result"
)

// Statement is a prepared statement's allocated id and shape, plus the
// bookkeeping needed to compute new-params-bound-flag across repeated
// executes (spec.md §4.8 step 4).
type Statement struct {
	ID         uint32
	SQL        string
	ParamCount int
	ColCount   int

	prevTypes []typeDesc
}

// Prepare runs COM_STMT_PREPARE (spec.md §4.8 step 1) and consumes its
// parameter/column metadata (steps 2–3).
func Prepare(ctx context.Context, eng *exchange.Engine, dctx *decode.Context, sql string) (*Statement, error) {
	sub := newPrepareSubscriber(dctx)

	req := exchange.Request{
		ID:         exchange.NewID(),
		Payload:    protocol.ComText{Cmd: protocol.ComStmtPrepare, Text: sql}.Encode(),
		ResetSeq:   true,
		Init:       func(c *decode.Context) { c.ToWaitPrepare() },
		Subscriber: sub,
		SQL:        sql,
	}
	if err := eng.Submit(ctx, req); err != nil {
		return nil, err
	}

	select {
	case info := <-sub.doneCh:
		return &Statement{ID: info.stmtID, SQL: sql, ParamCount: info.paramCount, ColCount: info.colCount}, nil
	case err := <-sub.errCh:
		return nil, err
	case <-ctx.Done():
		eng.Cancel()
		return nil, ctx.Err()
	}
}

// Execute runs one COM_STMT_EXECUTE for stmt with the given binding
// (spec.md §4.8 step 4). The new-params-bound-flag is set whenever
// this is the statement's first execute, or when any slot's (type,
// unsigned, null) triple differs from the previous execute's -- a
// value-to-NULL or NULL-to-value transition counts as a type change
// even when the declared type byte is unchanged (spec.md §8 scenario
// 3).
func Execute(ctx context.Context, eng *exchange.Engine, dctx *decode.Context, stmt *Statement, binding Binding) (*result.Set, error) {
	newParamsBound := stmt.prevTypes == nil || binding.typesChanged(stmt.prevTypes)

	msg := protocol.ComStmtExecute{
		StmtID:         stmt.ID,
		Params:         binding.toParams(),
		NewParamsBound: newParamsBound,
	}

	sub := newResultSubscriber(dctx, true)
	req := exchange.Request{
		ID:         exchange.NewID(),
		Payload:    msg.Encode(),
		ResetSeq:   true,
		Init:       func(c *decode.Context) { c.ToCommand() },
		Subscriber: sub,
		SQL:        stmt.SQL,
	}
	if err := eng.Submit(ctx, req); err != nil {
		return nil, err
	}

	set, err := nextWindow(ctx, eng, sub)
	if err != nil {
		return nil, err
	}
	stmt.prevTypes = binding.typeDescs()
	return set, nil
}

// Close sends COM_STMT_CLOSE as fire-and-forget (spec.md §4.8 step 5;
// §5's cancellation rule: "for prepared statements, a PreparedClose is
// still emitted for the allocated stmt_id").
func Close(ctx context.Context, eng *exchange.Engine, stmt *Statement) error {
	req := exchange.Request{
		ID:       exchange.NewID(),
		Payload:  protocol.ComStmtID{Cmd: protocol.ComStmtClose, StmtID: stmt.ID}.Encode(),
		ResetSeq: true,
	}
	return eng.Submit(ctx, req)
}
