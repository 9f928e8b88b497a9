package command

import "reactorkv/internal/resp"

// handleExists implements EXISTS key [key ...]: replies the count of listed
// keys currently present, applying lazy expiry per key. Supplemented from
// the distilled command table per SPEC_FULL.md §4.6.
func handleExists(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) < 1 {
		return errWrongArity("EXISTS"), false
	}
	keys, ok := argStrings(args)
	if !ok {
		return errWrongArity("EXISTS"), false
	}
	return resp.NewInteger(ctx.Store.Exists(keys...)), false
}
