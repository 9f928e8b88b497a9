package command

import "reactorkv/internal/resp"

// handlePing implements PING [message]: no argument replies +PONG; one
// argument is echoed back as a bulk string. Supplemented as the customary
// liveness probe of this protocol family; it touches no store state.
func handlePing(_ *Context, args []resp.Value) (resp.Value, bool) {
	switch len(args) {
	case 0:
		return resp.NewSimpleString("PONG"), false
	case 1:
		s, ok := argString(args[0])
		if !ok {
			return errWrongArity("PING"), false
		}
		return resp.NewBulkString([]byte(s)), false
	default:
		return errWrongArity("PING"), false
	}
}
