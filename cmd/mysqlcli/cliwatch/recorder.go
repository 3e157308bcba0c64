// Package cliwatch is a Bubble Tea program that live-renders a
// connection's exchange trace: query text, duration, terminal status,
// and N+1 alerts, fed from this module's own in-process Tracer hook.
package cliwatch

import (
	"time"

	"github.com/mickamy/mysqlwire/conn"
	"github.com/mickamy/mysqlwire/detect"
	"github.com/mickamy/mysqlwire/query"
)

// Row is one exchange's display state, built up across its Admitted/
// Draining/Terminated trace events.
type Row struct {
	SQL      string
	Duration time.Duration
	Detail   string
	Errored  bool
	NPlus1   bool
	At       time.Time
}

const (
	nplus1Threshold = 5
	nplus1Window    = time.Second
	nplus1Cooldown  = 10 * time.Second
)

// Recorder adapts conn.Tracer events into Rows, running N+1 detection
// over the normalized statement text on every terminated exchange.
type Recorder struct {
	out     chan Row
	det     *detect.Detector
	started map[conn.ExchangeID]time.Time
}

// NewRecorder returns a Recorder whose Trace method can be assigned
// directly to conn.Config.Tracer.
func NewRecorder() *Recorder {
	return &Recorder{
		out:     make(chan Row, 64),
		det:     detect.New(nplus1Threshold, nplus1Window, nplus1Cooldown),
		started: make(map[conn.ExchangeID]time.Time),
	}
}

// Rows returns the channel cliwatch's Model reads rendered rows from.
func (r *Recorder) Rows() <-chan Row { return r.out }

// Trace implements conn.Tracer. Never blocks: a full output channel
// drops the event rather than stalling the connection's reactor
// goroutine (spec.md §4.10's "never required for correctness, never
// blocking").
func (r *Recorder) Trace(ev conn.Event) {
	switch ev.Kind {
	case conn.EventAdmitted:
		r.started[ev.ID] = time.Now()
		return
	case conn.EventDraining:
		return
	case conn.EventTerminated:
	default:
		return
	}

	started, ok := r.started[ev.ID]
	delete(r.started, ev.ID)
	var dur time.Duration
	if ok {
		dur = time.Since(started)
	}

	row := Row{SQL: ev.SQL, Duration: dur, Detail: ev.Detail, At: time.Now()}
	if ev.Detail != "" {
		row.Errored = true
	}

	if ev.SQL != "" && !row.Errored {
		normalized := query.Normalize(ev.SQL)
		res := r.det.Record(normalized, row.At)
		row.NPlus1 = res.Matched
	}

	select {
	case r.out <- row:
	default:
	}
}
