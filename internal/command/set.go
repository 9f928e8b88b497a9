package command

import "reactorkv/internal/resp"

// handleSet implements SET key value: stores the value, unconditionally
// clearing any previous expiry (§9: taken as intended behavior).
func handleSet(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) != 2 {
		return errWrongArity("SET"), false
	}
	key, ok1 := argString(args[0])
	value, ok2 := argString(args[1])
	if !ok1 || !ok2 {
		return errWrongArity("SET"), false
	}
	ctx.Store.Set(key, []byte(value))
	return resp.NewSimpleString("OK"), true
}
