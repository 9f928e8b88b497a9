package command

import "reactorkv/internal/resp"

// handleDel implements DEL key [key ...]: removes each present key (lazily
// expired keys count as already absent) and replies the number removed.
// Supplemented from the distilled command table per SPEC_FULL.md §4.6: it
// reuses the Store's existing delete primitive, adding no new mechanism.
func handleDel(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) < 1 {
		return errWrongArity("DEL"), false
	}
	keys, ok := argStrings(args)
	if !ok {
		return errWrongArity("DEL"), false
	}
	n := ctx.Store.Del(keys...)
	return resp.NewInteger(n), n > 0
}

// argStrings extracts the string values of a slice of bulk-string
// arguments, failing if any element is not a plain bulk string.
func argStrings(values []resp.Value) ([]string, bool) {
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := argString(v)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
