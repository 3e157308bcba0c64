package flow

import (
	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/protocol"
)

// preparedInfo is what COM_STMT_PREPARE's response tells the caller:
// the allocated statement id and the parameter/column counts needed to
// size later COM_STMT_EXECUTE payloads (spec.md §4.8 step 1).
type preparedInfo struct {
	stmtID     uint32
	paramCount int
	colCount   int
}

type prepPhase int

const (
	prepPhaseWaitOK prepPhase = iota
	prepPhaseParams
	prepPhaseCols
)

// prepareSubscriber consumes COM_STMT_PREPARE's response: PreparedOK
// (or ERR), then paramCount parameter definitions, then colCount
// column definitions, each group terminated by EOF unless
// DEPRECATE_EOF was negotiated (spec.md §4.8 steps 1–3).
type prepareSubscriber struct {
	dctx  *decode.Context
	phase prepPhase

	remainingParams int
	remainingCols   int
	info            preparedInfo

	doneCh chan preparedInfo
	errCh  chan error
}

func newPrepareSubscriber(dctx *decode.Context) *prepareSubscriber {
	return &prepareSubscriber{
		dctx:   dctx,
		doneCh: make(chan preparedInfo, 1),
		errCh:  make(chan error, 1),
	}
}

// Deliver implements exchange.Subscriber.
func (s *prepareSubscriber) Deliver(msg protocol.ServerMessage) bool {
	switch m := msg.(type) {
	case *protocol.ERR:
		s.errCh <- mysqlerr.Server(m.Code, m.SQLState, m.Message, "")
		return false

	case *protocol.PreparedOK:
		s.info = preparedInfo{stmtID: m.StatementID, paramCount: int(m.ParamCount), colCount: int(m.ColumnCount)}
		switch {
		case s.info.paramCount > 0:
			s.remainingParams = s.info.paramCount
			s.dctx.ToPrepMetadata(s.info.paramCount, s.info.colCount)
			s.phase = prepPhaseParams
			return true
		case s.info.colCount > 0:
			s.remainingCols = s.info.colCount
			s.dctx.ToPrepMetadata(0, s.info.colCount)
			s.phase = prepPhaseCols
			return true
		default:
			s.finish()
			return false
		}

	case *protocol.ColumnDefinition41:
		switch s.phase {
		case prepPhaseParams:
			s.remainingParams--
			if s.remainingParams == 0 && s.dctx.DeprecateEOF {
				s.advanceAfterParams()
			}
		case prepPhaseCols:
			s.remainingCols--
			if s.remainingCols == 0 && s.dctx.DeprecateEOF {
				s.finish()
				return false
			}
		}
		return true

	case *protocol.EOF:
		switch s.phase {
		case prepPhaseParams:
			s.advanceAfterParams()
		case prepPhaseCols:
			s.finish()
			return false
		}
		return true
	}
	return true
}

func (s *prepareSubscriber) advanceAfterParams() {
	if s.info.colCount > 0 {
		s.remainingCols = s.info.colCount
		s.phase = prepPhaseCols
		return
	}
	s.finish()
}

func (s *prepareSubscriber) finish() {
	s.dctx.ToCommand()
	s.doneCh <- s.info
}

// Cancelled implements exchange.Subscriber. Prepare's response is
// small and fully buffered (doneCh/errCh each hold one value), so
// cancellation needs no extra bookkeeping here.
func (s *prepareSubscriber) Cancelled() {}

// Done implements exchange.Subscriber.
func (s *prepareSubscriber) Done(err error) {
	if err != nil {
		select {
		case s.errCh <- err:
		default:
		}
	}
}
