// Package debug pretty-prints decoded frames and messages when a
// caller turns on trace mode. Grounded in junftnt-go-mysql-pure's
// connection.go, which calls spew.Dump at each handshake step to make
// the wire protocol's state visible during development.
package debug

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// Dumper writes dumps to an underlying writer, or discards them when
// disabled -- the zero value is a no-op Dumper, matching the cost of
// leaving tracing off in the connection's hot path.
type Dumper struct {
	w       io.Writer
	enabled bool
}

// NewDumper returns a Dumper that writes to w.
func NewDumper(w io.Writer) *Dumper {
	return &Dumper{w: w, enabled: w != nil}
}

// DumpEnvelope prints a raw envelope payload's structure.
func (d *Dumper) DumpEnvelope(label string, payload []byte) {
	if !d.enabled {
		return
	}
	fmt.Fprintf(d.w, "--- envelope: %s ---\n", label)
	spew.Fdump(d.w, payload)
}

// DumpMessage prints a decoded message value.
func (d *Dumper) DumpMessage(label string, msg any) {
	if !d.enabled {
		return
	}
	fmt.Fprintf(d.w, "--- message: %s ---\n", label)
	spew.Fdump(d.w, msg)
}
