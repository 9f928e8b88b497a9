package command

import "reactorkv/internal/resp"

// handlePersist implements PERSIST key: clears an existing expiry, or
// replies 0 if the key is absent or already has no expiry.
func handlePersist(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) != 1 {
		return errWrongArity("PERSIST"), false
	}
	key, ok := argString(args[0])
	if !ok {
		return errWrongArity("PERSIST"), false
	}
	if !ctx.Store.Persist(key) {
		return resp.NewInteger(0), false
	}
	return resp.NewInteger(1), true
}
