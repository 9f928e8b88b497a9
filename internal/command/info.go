package command

import "reactorkv/internal/resp"

// handleInfo implements INFO: the bulk-string report rendered by Stats.
func handleInfo(ctx *Context, args []resp.Value) (resp.Value, bool) {
	if len(args) != 0 {
		return errWrongArity("INFO"), false
	}
	return resp.NewBulkString([]byte(ctx.Stats.Render(ctx.Store.Len()))), false
}
