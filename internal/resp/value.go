// Package resp implements the wire framing codec: a small RESP-like grammar
// of simple strings, errors, integers, bulk strings, arrays, and an
// internal-only null, parsed from a byte slice (the reactor passes a
// connection buffer's readable span) with an explicit
// "need more bytes" outcome and a transactional rollback on any other error.
package resp

import "fmt"

// Kind tags which variant a Value holds.
type Kind int

const (
	SimpleString Kind = iota
	Error
	Integer
	BulkString
	Array
	Null
)

// Value is a tagged sum of the framed wire types. Only the field matching
// Kind is meaningful; NullBulk distinguishes an absent BulkString (the
// protocol's "$-1\r\n") from one holding an empty payload ("$0\r\n\r\n").
type Value struct {
	Kind     Kind
	Str      string  // SimpleString, Error
	Int      int64   // Integer
	Bulk     []byte  // BulkString payload when !NullBulk
	NullBulk bool    // BulkString: true means null-bulk
	Items    []Value // Array
}

// NewSimpleString builds a SimpleString value.
func NewSimpleString(s string) Value { return Value{Kind: SimpleString, Str: s} }

// NewError builds an Error value. s should not include the leading '-'.
func NewError(s string) Value { return Value{Kind: Error, Str: s} }

// NewInteger builds an Integer value.
func NewInteger(n int64) Value { return Value{Kind: Integer, Int: n} }

// NewBulkString builds a non-null BulkString value.
func NewBulkString(b []byte) Value { return Value{Kind: BulkString, Bulk: b} }

// NewNullBulk builds the null-bulk BulkString value.
func NewNullBulk() Value { return Value{Kind: BulkString, NullBulk: true} }

// NewArray builds an Array value from already-built children.
func NewArray(items []Value) Value { return Value{Kind: Array, Items: items} }

// NewCommand builds the Array-of-bulk-strings shape a client request takes.
func NewCommand(parts ...string) Value {
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = NewBulkString([]byte(p))
	}
	return NewArray(items)
}

// AsCommand returns the command name (unchanged case) and its remaining
// bulk-string arguments if v is an Array of BulkStrings with at least one
// element; ok is false otherwise. Callers that dispatch by name are
// responsible for case-folding it themselves.
func (v Value) AsCommand() (name string, args []Value, ok bool) {
	if v.Kind != Array || len(v.Items) == 0 {
		return "", nil, false
	}
	for _, it := range v.Items {
		if it.Kind != BulkString || it.NullBulk {
			return "", nil, false
		}
	}
	return string(v.Items[0].Bulk), v.Items[1:], true
}

func (v Value) String() string {
	switch v.Kind {
	case SimpleString:
		return fmt.Sprintf("+%s", v.Str)
	case Error:
		return fmt.Sprintf("-%s", v.Str)
	case Integer:
		return fmt.Sprintf(":%d", v.Int)
	case BulkString:
		if v.NullBulk {
			return "$-1"
		}
		return fmt.Sprintf("$%d:%s", len(v.Bulk), v.Bulk)
	case Array:
		return fmt.Sprintf("*%d", len(v.Items))
	default:
		return "<null>"
	}
}
