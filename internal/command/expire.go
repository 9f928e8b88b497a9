package command

import (
	"strconv"
	"time"

	"reactorkv/internal/resp"
)

// handleExpire implements EXPIRE key seconds.
func handleExpire(ctx *Context, args []resp.Value) (resp.Value, bool) {
	return expireWith(ctx, args, "EXPIRE", time.Second)
}

// handlePExpire implements PEXPIRE key milliseconds.
func handlePExpire(ctx *Context, args []resp.Value) (resp.Value, bool) {
	return expireWith(ctx, args, "PEXPIRE", time.Millisecond)
}

// expireWith shares EXPIRE/PEXPIRE's logic, differing only in the unit the
// second argument is measured in. A negative amount is an error; zero is
// accepted and preserved as-is, matching §9's note that the source does not
// reject EXPIRE with 0 seconds (the key becomes immediately lazy-expired).
func expireWith(ctx *Context, args []resp.Value, name string, unit time.Duration) (resp.Value, bool) {
	if len(args) != 2 {
		return errWrongArity(name), false
	}
	key, ok := argString(args[0])
	if !ok {
		return errWrongArity(name), false
	}
	amountStr, ok := argString(args[1])
	if !ok {
		return errWrongArity(name), false
	}
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return resp.NewError("ERR value is not an integer or out of range"), false
	}
	if amount < 0 {
		return resp.NewError("ERR invalid expire time"), false
	}
	if !ctx.Store.Expire(key, time.Duration(amount)*unit) {
		return resp.NewInteger(0), false
	}
	return resp.NewInteger(1), true
}
