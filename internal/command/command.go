// Package command implements the per-command logic (§4.6): each command is
// a function closed over its arguments and a shared Context exposing the
// Store, the optional durability log, and the statistics counters.
package command

import (
	"fmt"
	"strings"

	"reactorkv/internal/aof"
	"reactorkv/internal/resp"
	"reactorkv/internal/stats"
	"reactorkv/internal/store"
)

// Context is the shared state every command handler closes over.
type Context struct {
	Store *store.Store
	Log   *aof.Log // nil when the durability log is disabled
	Stats *stats.Stats
}

// Handler runs one command's logic against args (the command name itself
// is not included) and returns the reply value (serialized later by the
// engine) plus whether the
// command should be replicated to the durability log.
type Handler func(ctx *Context, args []resp.Value) (reply resp.Value, replicate bool)

// errWrongArity formats the standard arity-error reply for name.
func errWrongArity(name string) resp.Value {
	return resp.NewError(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToUpper(name)))
}

// argString extracts the string value of a bulk-string argument.
func argString(v resp.Value) (string, bool) {
	if v.Kind != resp.BulkString || v.NullBulk {
		return "", false
	}
	return string(v.Bulk), true
}
