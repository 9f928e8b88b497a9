package resp

import (
	"strconv"
)

// Serialize renders v to its wire bytes. It is total over every Value
// variant: Null (the internal-only variant never sent by a parser) is
// rendered as a null-bulk, matching the protocol's own way of expressing
// absence.
func Serialize(v Value) []byte {
	var buf []byte
	return appendValue(buf, v)
}

func appendValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case SimpleString:
		buf = append(buf, '+')
		buf = append(buf, v.Str...)
		return append(buf, '\r', '\n')
	case Error:
		buf = append(buf, '-')
		buf = append(buf, v.Str...)
		return append(buf, '\r', '\n')
	case Integer:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, v.Int, 10)
		return append(buf, '\r', '\n')
	case BulkString:
		if v.NullBulk {
			return append(buf, '$', '-', '1', '\r', '\n')
		}
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(v.Bulk)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, v.Bulk...)
		return append(buf, '\r', '\n')
	case Array:
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(v.Items)), 10)
		buf = append(buf, '\r', '\n')
		for _, item := range v.Items {
			buf = appendValue(buf, item)
		}
		return buf
	default: // Null
		return append(buf, '$', '-', '1', '\r', '\n')
	}
}
