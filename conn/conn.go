package conn

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/mickamy/mysqlwire/debug"
	"github.com/mickamy/mysqlwire/decode"
	"github.com/mickamy/mysqlwire/exchange"
	"github.com/mickamy/mysqlwire/flow"
	"github.com/mickamy/mysqlwire/frame"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/result"
	"github.com/mickamy/mysqlwire/session"
)

// Tracer is re-exported so callers don't need to import exchange just
// to supply Config.Tracer.
type Tracer = exchange.Tracer

// Event is re-exported for the same reason.
type Event = exchange.Event

// ExchangeID is re-exported so a Tracer implementation can key state by
// Event.ID without importing exchange directly.
type ExchangeID = exchange.ID

// EventKind and its values are re-exported for the same reason.
type EventKind = exchange.EventKind

const (
	EventAdmitted   = exchange.EventAdmitted
	EventDraining   = exchange.EventDraining
	EventTerminated = exchange.EventTerminated
)

// Conn is one negotiated connection to a MySQL server: the envelope
// codec, the session state the handshake produced, the exchange
// engine serializing command-phase traffic, and the reactor goroutine
// that feeds it (spec.md §1, components E–H wired together).
type Conn struct {
	raw       net.Conn
	tlsActive bool

	seq    *frame.SeqCounter
	joiner *frame.Joiner
	slicer *frame.Slicer

	session *session.Session
	dctx    *decode.Context
	engine  *exchange.Engine
	dumper  *debug.Dumper
	log     Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial opens a TCP connection to cfg.Host:cfg.Port and runs the
// handshake/auth state machine to completion, returning a Conn ready
// for Query/Prepare (spec.md §4.3, §4.4).
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	dialCtx, cancel := dialCtx(ctx, cfg.ConnectTimeout)
	defer cancel()

	var d net.Dialer
	raw, err := d.DialContext(dialCtx, "tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		return nil, err
	}

	seq := frame.NewSeqCounter()
	c := &Conn{
		raw:     raw,
		seq:     seq,
		joiner:  frame.NewJoinerShared(seq),
		slicer:  frame.NewSlicerShared(seq),
		session: session.New(),
		dctx:    decode.NewConnection(false),
		dumper:  debug.NewDumper(cfg.Debug),
		log:     logger(cfg.Logger),
	}

	if err := c.handshake(ctx, cfg); err != nil {
		_ = raw.Close()
		c.log.Printf("handshake failed: %v", err)
		return nil, err
	}

	c.engine = exchange.New(c, c.dctx, cfg.Tracer)
	go c.reactor()

	return c, nil
}

// Send implements the sender interface exchange.Engine calls through
// to write one exchange's request envelope(s) (spec.md §4.7).
func (c *Conn) Send(_ context.Context, payload []byte, resetSeq bool) error {
	if resetSeq {
		c.seq.Reset()
	}
	c.dumper.DumpEnvelope("send", payload)
	return c.slicer.Encode(c.raw, payload)
}

// reactor is the connection's single reading goroutine: it joins
// envelopes into logical messages, decodes them under the active
// decode context, and hands them to the exchange engine. A transport
// or protocol error here is fatal to the connection; the engine's
// active exchange (if any) is force-completed with that error (spec.md
// §4.2, §4.7).
func (c *Conn) reactor() {
	for {
		msg, done, err := c.joiner.Feed(c.raw)
		if err != nil {
			c.log.Printf("reactor: envelope read failed: %v", err)
			c.engine.Finish(err)
			return
		}
		if !done {
			continue
		}
		sm, err := protocol.Decode(c.dctx, msg)
		if err != nil {
			c.log.Printf("reactor: decode failed: %v", err)
			c.engine.Finish(err)
			return
		}
		c.dumper.DumpMessage("recv", sm)
		c.engine.Deliver(sm)
	}
}

// Query runs sql as a simple query (COM_QUERY, spec.md §4.8) and
// returns its result set or error.
func (c *Conn) Query(ctx context.Context, sql string) (*result.Set, error) {
	return flow.SimpleQuery(ctx, c.engine, c.dctx, sql)
}

// Exec is Query for statements whose result is only an affected-row
// count; it is Query by another name since SimpleQuery already
// reports that shape through result.Set.RowsUpdated.
func (c *Conn) Exec(ctx context.Context, sql string) (*result.Set, error) {
	return c.Query(ctx, sql)
}

// Prepare runs COM_STMT_PREPARE and returns a handle bound to this
// connection's engine and decode context (spec.md §4.8 steps 1–3).
func (c *Conn) Prepare(ctx context.Context, sql string) (*Stmt, error) {
	st, err := flow.Prepare(ctx, c.engine, c.dctx, sql)
	if err != nil {
		return nil, err
	}
	return &Stmt{conn: c, stmt: st}, nil
}

// Close sends COM_QUIT as fire-and-forget and closes the socket
// (spec.md §4.8's ExitMessage). Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if c.engine != nil {
			_ = c.engine.Submit(context.Background(), exchange.Request{
				ID:      exchange.NewID(),
				Payload: protocol.ComSimple{Cmd: protocol.ComQuit}.Encode(),
			})
		}
		c.closeErr = c.raw.Close()
	})
	return c.closeErr
}
