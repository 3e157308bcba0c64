package flow

import "github.com/mickamy/mysqlwire/protocol"

// Slot is one parameter slot in a Binding: unset, null, or a
// (type, encoded bytes) pair (spec.md §3 "Bindings").
type Slot struct {
	set      bool
	Null     bool
	Type     byte
	Unsigned bool
	Value    []byte
}

// Bind returns a slot holding a non-null binary-encoded value.
func Bind(typ byte, unsigned bool, value []byte) Slot {
	return Slot{set: true, Type: typ, Unsigned: unsigned, Value: value}
}

// BindNull returns a slot holding an explicit SQL NULL.
func BindNull(typ byte) Slot {
	return Slot{set: true, Null: true, Type: typ}
}

// Binding is one execution's full set of parameter slots, in
// positional order.
type Binding struct {
	Slots []Slot
}

// Complete reports whether every slot has been bound (spec.md §3: "A
// batch is complete when no slot is unset").
func (b Binding) Complete() bool {
	for _, s := range b.Slots {
		if !s.set {
			return false
		}
	}
	return true
}

// typesChanged reports whether b's per-slot (type, unsigned, null)
// triples differ from prev's, which determines the
// new-params-bound-flag (spec.md §4.8 step 4: "=1 on first exec or
// when types change"; spec.md §8 scenario 3: a slot rebinding from a
// value to NULL, or back, forces the flag even when the declared type
// byte is unchanged, "because value type set differs").
func (b Binding) typesChanged(prev []typeDesc) bool {
	if len(prev) != len(b.Slots) {
		return true
	}
	for i, s := range b.Slots {
		if prev[i].typ != s.Type || prev[i].unsigned != s.Unsigned || prev[i].null != s.Null {
			return true
		}
	}
	return false
}

type typeDesc struct {
	typ      byte
	unsigned bool
	null     bool
}

func (b Binding) typeDescs() []typeDesc {
	out := make([]typeDesc, len(b.Slots))
	for i, s := range b.Slots {
		out[i] = typeDesc{typ: s.Type, unsigned: s.Unsigned, null: s.Null}
	}
	return out
}

func (b Binding) toParams() []protocol.StmtParam {
	out := make([]protocol.StmtParam, len(b.Slots))
	for i, s := range b.Slots {
		out[i] = protocol.StmtParam{Null: s.Null, Type: s.Type, Unsigned: s.Unsigned, Value: s.Value}
	}
	return out
}
