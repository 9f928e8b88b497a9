package command

import "reactorkv/internal/resp"

// handleGet implements GET key: lazily-expired or missing keys count as a
// miss and reply null-bulk; otherwise reply the value and count a hit.
func handleGet(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) != 1 {
		return errWrongArity("GET"), false
	}
	key, ok := argString(args[0])
	if !ok {
		return errWrongArity("GET"), false
	}
	value, found := ctx.Store.Get(key)
	if !found {
		ctx.Stats.Miss()
		return resp.NewNullBulk(), false
	}
	ctx.Stats.Hit()
	return resp.NewBulkString(value), false
}
