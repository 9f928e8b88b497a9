package command

import (
	"time"

	"reactorkv/internal/resp"
)

// handleTTL implements TTL key: remaining time to live rounded up to whole
// seconds, or the -1/-2 sentinels.
func handleTTL(ctx *Context, args []resp.Value) (resp.Value, bool) {
	return ttlWith(ctx, args, "TTL", time.Second)
}

// handlePTTL implements PTTL key: as TTL but in milliseconds.
func handlePTTL(ctx *Context, args []resp.Value) (resp.Value, bool) {
	return ttlWith(ctx, args, "PTTL", time.Millisecond)
}

func ttlWith(ctx *Context, args []resp.Value, name string, unit time.Duration) (resp.Value, bool) {
	if len(args) != 1 {
		return errWrongArity(name), false
	}
	key, ok := argString(args[0])
	if !ok {
		return errWrongArity(name), false
	}
	remaining, code := ctx.Store.TTL(key)
	if code != 0 {
		return resp.NewInteger(int64(code)), false
	}
	n := remaining / unit
	if remaining%unit != 0 {
		n++ // ceil to whole units, matching §4.6's "ceil(remaining to seconds)"
	}
	return resp.NewInteger(int64(n)), false
}
