package flow

import (
	"context"

	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/exchange"
	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/result"
)

// resultSubscriber accumulates one exchange's responses into a stream
// of result.Set windows: either an OK's counters, or column metadata
// followed by a row stream (spec.md §4.8's simple-query and
// prepared-execute decode-context transitions, §4.9's result window).
// A semicolon-joined multi-statement batch closes each window's
// OK/EOF with SERVER_MORE_RESULTS_EXISTS set, which re-arms the
// metadata/row-stream cycle for the next window instead of ending the
// exchange (spec.md §4.8: "the flow emits exactly N windows or an
// error"). Shared by the simple-query and prepared-execute flows,
// which differ only in whether rows are text- or binary-encoded.
type resultSubscriber struct {
	dctx   *decode.Context
	binary bool

	colDefs       []protocol.ColumnDefinition41
	remainingCols int

	cols  *result.Columns
	rowCh chan result.Row

	windows chan *result.Set
	errCh   chan error

	// cancelled is set once the engine cancels this exchange; from then
	// on rows and windows are counted toward the terminal message but
	// never queued, since nobody is left to read rowCh/windows (spec.md
	// §4.7 drain rule). The engine still needs every window's terminal
	// message delivered before it can admit the next exchange, so
	// delivery keeps running across a cancelled multi-statement batch.
	cancelled bool
}

func newResultSubscriber(dctx *decode.Context, binary bool) *resultSubscriber {
	return &resultSubscriber{
		dctx:    dctx,
		binary:  binary,
		windows: make(chan *result.Set, 1),
		errCh:   make(chan error, 1),
	}
}

// Deliver implements exchange.Subscriber.
func (s *resultSubscriber) Deliver(msg protocol.ServerMessage) bool {
	switch m := msg.(type) {
	case *protocol.ERR:
		s.errCh <- mysqlerr.Server(m.Code, m.SQLState, m.Message, "")
		close(s.windows)
		return false

	case *protocol.OK:
		if s.cols == nil {
			// No result set was ever opened: this statement only
			// produced an affected-row count (spec.md §4.9).
			if !s.cancelled {
				s.windows <- result.NewOKSet(m)
			}
			return s.continueOrFinish(m.StatusFlags)
		}
		// DEPRECATE_EOF: the OK after the last row terminates the
		// stream instead of an EOF.
		close(s.rowCh)
		return s.continueOrFinish(m.StatusFlags)

	case *protocol.ColumnCount:
		s.remainingCols = int(m.Count)
		s.dctx.ToResultMetadata(s.remainingCols)
		if s.remainingCols == 0 {
			s.openRowStream()
		}
		return true

	case *protocol.ColumnDefinition41:
		s.colDefs = append(s.colDefs, *m)
		s.remainingCols--
		if s.remainingCols == 0 && s.dctx.DeprecateEOF {
			s.openRowStream()
		}
		return true

	case *protocol.EOF:
		switch s.dctx.Kind {
		case decode.ResultMetadata, decode.PrepMetadata:
			s.openRowStream()
		case decode.ResultRows:
			close(s.rowCh)
			return s.continueOrFinish(m.StatusFlags)
		}
		return true

	case *protocol.TextRow:
		if !s.cancelled {
			s.rowCh <- result.Row{Columns: s.cols, Fields: m.Fields}
		}
		return true

	case *protocol.BinaryRow:
		if !s.cancelled {
			s.rowCh <- result.Row{Columns: s.cols, Fields: m.Fields}
		}
		return true
	}
	return true
}

// continueOrFinish inspects the status flags on a window's terminal
// OK/EOF. With SERVER_MORE_RESULTS_EXISTS unset this is the batch's
// last window: the windows channel is closed so a waiting NextResult
// sees end-of-batch, and Deliver returns false to end the exchange.
// Otherwise the metadata/row-stream cycle is re-armed for the next
// window and Deliver keeps receiving (spec.md §4.8).
func (s *resultSubscriber) continueOrFinish(status protocol.StatusFlags) bool {
	if !status.Has(protocol.ServerMoreResultsExist) {
		close(s.windows)
		return false
	}
	s.colDefs = nil
	s.remainingCols = 0
	s.cols = nil
	s.rowCh = nil
	s.dctx.ToCommand()
	return true
}

// Cancelled implements exchange.Subscriber.
func (s *resultSubscriber) Cancelled() {
	s.cancelled = true
}

// openRowStream transitions the decode context to RESULT_ROWS and
// publishes the now-complete result.Set to the waiting caller.
func (s *resultSubscriber) openRowStream() {
	meta := make([]decode.ColumnMeta, len(s.colDefs))
	cols := make([]result.Column, len(s.colDefs))
	for i, cd := range s.colDefs {
		meta[i] = decode.ColumnMeta{Name: cd.Name, Type: cd.Type, Unsigned: cd.Unsigned()}
		cols[i] = result.Column{Name: cd.Name, Type: cd.Type, Unsigned: cd.Unsigned()}
	}
	s.dctx.ToResultRows(meta, s.binary)
	s.cols = result.NewColumns(cols)
	s.rowCh = make(chan result.Row, 16)
	if !s.cancelled {
		s.windows <- result.NewRowsSet(s.cols, s.rowCh)
	}
}

// Done implements exchange.Subscriber.
func (s *resultSubscriber) Done(err error) {
	if err != nil {
		select {
		case s.errCh <- err:
		default:
		}
	}
}

// nextWindow waits for sub's next completed result.Set, binding Cancel
// and NextResult on it so a caller can stop the exchange early or walk
// the rest of a semicolon-joined multi-statement batch (spec.md §4.8)
// without SimpleQuery/Execute knowing about anything past the first
// window. A closed windows channel with no pending value means the
// batch ended cleanly: it returns a nil Set and nil error.
func nextWindow(ctx context.Context, eng *exchange.Engine, sub *resultSubscriber) (*result.Set, error) {
	select {
	case set, ok := <-sub.windows:
		if !ok {
			return nil, nil
		}
		set.BindCancel(eng.Cancel)
		set.BindNext(func(ctx context.Context) (*result.Set, error) {
			return nextWindow(ctx, eng, sub)
		})
		return set, nil
	case err := <-sub.errCh:
		return nil, err
	case <-ctx.Done():
		eng.Cancel()
		return nil, ctx.Err()
	}
}
