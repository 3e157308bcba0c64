// Package decode carries the per-exchange decode context: the tag that
// tells the envelope/message decoder how to interpret the next
// logical message (spec.md §3 "Decode context", §4.6). The decoder
// only reads this state; every transition is driven externally by the
// query flow layer (spec.md §4.8, §9).
package decode

// Kind is the tag discriminating how the next server message must be
// interpreted.
type Kind int

const (
	// Connection is the context during handshake/auth negotiation:
	// expects HandshakeV10 initially, then OK/ERR/AuthMoreData/
	// AuthSwitchRequest.
	Connection Kind = iota
	// Command is the idle command-phase context: expects OK, ERR,
	// a column-count varint, or EOF (deprecate-EOF OK).
	Command
	// WaitPrepare expects ERR or a COM_STMT_PREPARE_OK response.
	WaitPrepare
	// PrepMetadata is consuming parameter/column definitions following
	// a COM_STMT_PREPARE_OK.
	PrepMetadata
	// ResultMetadata is consuming column definitions following a
	// column-count header.
	ResultMetadata
	// ResultRows is consuming row payloads (text or binary) until a
	// terminating OK/EOF.
	ResultRows
)

func (k Kind) String() string {
	switch k {
	case Connection:
		return "CONNECTION"
	case Command:
		return "COMMAND"
	case WaitPrepare:
		return "WAIT_PREPARE"
	case PrepMetadata:
		return "PREP_METADATA"
	case ResultMetadata:
		return "RESULT_METADATA"
	case ResultRows:
		return "RESULT_ROWS"
	}
	return "UNKNOWN"
}

// ColumnMeta is the minimal per-column information the decoder needs to
// interpret a binary row field (its type and signedness) and that the
// result layer needs for name lookup; the full column-definition
// message lives in the protocol package.
type ColumnMeta struct {
	Name     string
	Type     byte
	Unsigned bool
}

// Context is the mutable decode-context value attached to one
// exchange's receiver. Only one of the kind-specific field groups
// below is meaningful at a time, matching the tagged-union shape in
// spec.md §3.
type Context struct {
	Kind Kind

	// PrepMetadata
	ParamTotal      int
	ColTotal        int
	RemainingParams int
	RemainingCols   int

	// ResultMetadata
	RemainingMetaCols int
	MetaColTotal      int

	// ResultRows
	Cols   []ColumnMeta
	Binary bool

	// DeprecateEOF is negotiated once per connection and consulted by
	// every context that would otherwise wait for an explicit EOF.
	DeprecateEOF bool
}

// NewConnection returns a fresh CONNECTION context.
func NewConnection(deprecateEOF bool) *Context {
	return &Context{Kind: Connection, DeprecateEOF: deprecateEOF}
}

// ToCommand resets the context to idle COMMAND, preserving DeprecateEOF.
func (c *Context) ToCommand() {
	*c = Context{Kind: Command, DeprecateEOF: c.DeprecateEOF}
}

// ToWaitPrepare resets the context to WAIT_PREPARE.
func (c *Context) ToWaitPrepare() {
	*c = Context{Kind: WaitPrepare, DeprecateEOF: c.DeprecateEOF}
}

// ToPrepMetadata moves to PREP_METADATA with the given totals.
func (c *Context) ToPrepMetadata(params, cols int) {
	*c = Context{
		Kind:            PrepMetadata,
		ParamTotal:      params,
		ColTotal:        cols,
		RemainingParams: params,
		RemainingCols:   cols,
		DeprecateEOF:    c.DeprecateEOF,
	}
}

// ToResultMetadata moves to RESULT_METADATA expecting colTotal column
// definitions.
func (c *Context) ToResultMetadata(colTotal int) {
	*c = Context{
		Kind:              ResultMetadata,
		MetaColTotal:      colTotal,
		RemainingMetaCols: colTotal,
		DeprecateEOF:      c.DeprecateEOF,
	}
}

// ToResultRows moves to RESULT_ROWS over the given columns.
func (c *Context) ToResultRows(cols []ColumnMeta, binary bool) {
	*c = Context{Kind: ResultRows, Cols: cols, Binary: binary, DeprecateEOF: c.DeprecateEOF}
}
