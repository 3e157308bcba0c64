// Package explain runs EXPLAIN/EXPLAIN ANALYZE queries over a
// mysqlwire connection and reports the plan text plus wall-clock time.
package explain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mickamy/mysqlwire/conn"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/result"
)

// Mode selects between EXPLAIN and EXPLAIN ANALYZE.
type Mode int

const (
	Explain Mode = iota // EXPLAIN (plan only)
	Analyze             // EXPLAIN ANALYZE (plan + actual execution)
)

func (m Mode) String() string {
	switch m {
	case Explain:
		return "EXPLAIN"
	case Analyze:
		return "EXPLAIN ANALYZE"
	}
	return "EXPLAIN"
}

func (m Mode) prefix() string {
	switch m {
	case Explain:
		return "EXPLAIN "
	case Analyze:
		return "EXPLAIN ANALYZE "
	}
	return "EXPLAIN "
}

// Result holds the output of an EXPLAIN query.
type Result struct {
	Plan     string
	Duration time.Duration
}

// Client runs EXPLAIN queries over a single mysqlwire connection.
type Client struct {
	conn *conn.Conn
}

// NewClient wraps an already-dialed connection.
func NewClient(c *conn.Conn) *Client {
	return &Client{conn: c}
}

// Run executes EXPLAIN or EXPLAIN ANALYZE for query, binding args
// positionally through a prepared statement when there are any (so the
// values are never string-substituted into the SQL text), or as a
// plain simple query otherwise.
func (c *Client) Run(ctx context.Context, mode Mode, query string, args []string) (*Result, error) {
	full := mode.prefix() + query

	start := time.Now()
	set, err := c.run(ctx, full, args)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var lines []string
	if set.RowCh != nil {
		for row := range set.RowCh {
			field, ok := row.Field(0)
			if !ok || field.Null {
				continue
			}
			lines = append(lines, string(field.Raw))
		}
	}

	return &Result{
		Plan:     strings.Join(lines, "\n"),
		Duration: time.Since(start),
	}, nil
}

func (c *Client) run(ctx context.Context, full string, args []string) (*result.Set, error) {
	if len(args) == 0 {
		return c.conn.Query(ctx, full)
	}

	stmt, err := c.conn.Prepare(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close(ctx) }()

	binding := conn.Binding{Slots: make([]conn.Slot, len(args))}
	for i, a := range args {
		binding.Slots[i] = conn.Bind(protocol.TypeVarString, false, []byte(a))
	}
	return stmt.Execute(ctx, binding)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
