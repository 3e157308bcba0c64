// Package flow drives the simple-query and prepared-statement
// exchanges over an exchange.Engine (spec.md §4.8, component H's flow
// half; the placeholder-scanning half lives in package query).
package flow

import (
	"context"

	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/exchange"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/result"
)

// SimpleQuery runs one COM_QUERY exchange (spec.md §4.8 "Simple
// query"). The sequence id resets; the decode context starts at
// COMMAND and ends either at an immediate OK/ERR or, for a SELECT, at
// RESULT_ROWS with a live row stream. sql may be a semicolon-joined
// multi-statement batch when the connection negotiated
// CLIENT_MULTI_STATEMENTS; the returned Set's NextResult walks the
// remaining windows.
func SimpleQuery(ctx context.Context, eng *exchange.Engine, dctx *decode.Context, sql string) (*result.Set, error) {
	sub := newResultSubscriber(dctx, false)

	req := exchange.Request{
		ID:         exchange.NewID(),
		Payload:    protocol.ComText{Cmd: protocol.ComQuery, Text: sql}.Encode(),
		ResetSeq:   true,
		Init:       func(c *decode.Context) { c.ToCommand() },
		Subscriber: sub,
		SQL:        sql,
	}

	if err := eng.Submit(ctx, req); err != nil {
		return nil, err
	}

	return nextWindow(ctx, eng, sub)
}
