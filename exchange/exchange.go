// Package exchange serializes logical request/response exchanges onto
// a connection's single duplex stream (spec.md §4.7, component G). At
// most one exchange is active at a time; the engine pushes decoded
// server messages to that exchange's subscriber and enforces the
// sequence-id and cancellation/drain discipline the protocol requires.
package exchange

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/protocol"
)

// ID correlates one logical exchange across its request and response,
// and across trace events (spec.md §4.10).
type ID string

// NewID mints a fresh correlation id.
func NewID() ID {
	return ID(uuid.New().String())
}

// Subscriber receives the decoded server messages belonging to one
// exchange, in receipt order, until Done is called. Deliver returns
// false once the message it was just given concludes the exchange (a
// terminal OK/ERR/EOF), at which point the engine calls Done and frees
// itself to admit the next exchange. Cancelled is called once if the
// engine cancels the exchange before it concludes, so the subscriber
// can stop queuing results it knows nobody will read (spec.md §4.7
// back-pressure and drain discipline).
type Subscriber interface {
	Deliver(msg protocol.ServerMessage) (wantMore bool)
	Cancelled()
	Done(err error)
}

// Request is one exchange's outbound side: the envelope payload to
// send, whether it resets the sequence id, the initial decode context
// to install once sent, and the subscriber to receive responses. A nil
// Subscriber marks a fire-and-forget request (e.g. COM_STMT_CLOSE,
// spec.md §4.8 step 5).
type Request struct {
	ID       ID
	Payload  []byte
	ResetSeq bool
	// Init installs the decode context the first response envelope
	// must be interpreted under (e.g. dctx.ToWaitPrepare). Called once,
	// synchronously, during Submit.
	Init       func(*decode.Context)
	Subscriber Subscriber
	// SQL is the statement text this exchange carries, reported on its
	// trace events (spec.md §4.10). The engine never inspects it; flow
	// fills it in since it is the only layer that knows the statement
	// behind a given exchange.
	SQL string
}

// sender is the minimal outbound capability the engine needs; conn
// supplies the concrete envelope slicer.
type sender interface {
	Send(ctx context.Context, payload []byte, resetSeq bool) error
}

// Engine admits one exchange at a time onto sender and routes decoded
// inbound messages to its subscriber (spec.md §4.7).
type Engine struct {
	send   sender
	tracer Tracer

	mu        sync.Mutex
	active    *Request
	decodeCtx *decode.Context
	cancelled bool
}

// New returns an Engine writing through send and reporting lifecycle
// events to tracer (tracer may be nil).
func New(send sender, decodeCtx *decode.Context, tracer Tracer) *Engine {
	return &Engine{send: send, decodeCtx: decodeCtx, tracer: tracer}
}

// Submit admits req as the active exchange. It does not wait: while a
// previously admitted exchange is still active (not yet completed, or
// cancelled but not yet drained), Submit sends nothing and returns a
// ClientMisuse error.
func (e *Engine) Submit(ctx context.Context, req Request) error {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return mysqlerr.New(mysqlerr.KindClientMisuse, false,
			"exchange %s submitted while %s is still active", req.ID, e.active.ID)
	}
	e.active = &req
	e.cancelled = false
	if req.Init != nil {
		req.Init(e.decodeCtx)
	}
	e.mu.Unlock()

	e.trace(EventAdmitted, req.ID, req.SQL, "")

	if err := e.send.Send(ctx, req.Payload, req.ResetSeq); err != nil {
		e.finish(err)
		return err
	}
	if req.Subscriber == nil {
		// Fire-and-forget: no response is expected, so the exchange is
		// already over (spec.md §4.7: "ExitMessage is fire-and-forget
		// (no subscriber)").
		e.finish(nil)
	}
	return nil
}

// Deliver routes one decoded server message to the active subscriber.
// It is the connection reactor's job to call this for every inbound
// message while an exchange is active (spec.md §4.7's "single-threaded
// cooperative within one connection" scheduling model). The subscriber
// keeps receiving messages even while the exchange is cancelled, since
// it alone knows which message is the terminal one that ends the
// sequence; Cancelled tells it to stop queuing results nobody will
// read in the meantime.
func (e *Engine) Deliver(msg protocol.ServerMessage) {
	e.mu.Lock()
	req := e.active
	e.mu.Unlock()

	if req == nil || req.Subscriber == nil {
		return
	}
	if !req.Subscriber.Deliver(msg) {
		e.finish(nil)
	}
}

// Cancel marks the active exchange cancelled and tells its subscriber
// to stop queuing undeliverable results. The engine still relies on
// Deliver observing the exchange's terminal message to call Finish and
// admit the next exchange (spec.md §4.7).
func (e *Engine) Cancel() {
	e.mu.Lock()
	req := e.active
	e.cancelled = true
	e.mu.Unlock()
	if req == nil {
		return
	}
	if req.Subscriber != nil {
		req.Subscriber.Cancelled()
	}
	e.trace(EventDraining, req.ID, req.SQL, "cancelled")
}

// Finish force-completes the active exchange without waiting for its
// terminal server message, e.g. when the connection itself is dying.
func (e *Engine) Finish(err error) {
	e.finish(err)
}

func (e *Engine) finish(err error) {
	e.mu.Lock()
	req := e.active
	e.active = nil
	e.cancelled = false
	e.mu.Unlock()

	if req == nil {
		return
	}
	if req.Subscriber != nil {
		req.Subscriber.Done(err)
	}
	kind := EventTerminated
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.trace(kind, req.ID, req.SQL, msg)
}

func (e *Engine) trace(kind EventKind, id ID, sql, detail string) {
	if e.tracer == nil {
		return
	}
	e.tracer.Trace(Event{Kind: kind, ID: id, SQL: sql, Detail: detail})
}
