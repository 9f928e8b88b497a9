package command

// Handlers is the dispatch table, keyed by uppercased command name,
// matching §9's design note: "re-express [the dynamic dispatch] as ... a
// dispatch table keyed by uppercased command name to a function handle."
var Handlers = map[string]Handler{
	"GET":     handleGet,
	"SET":     handleSet,
	"DEL":     handleDel,
	"EXISTS":  handleExists,
	"EXPIRE":  handleExpire,
	"PEXPIRE": handlePExpire,
	"TTL":     handleTTL,
	"PTTL":    handlePTTL,
	"PERSIST": handlePersist,
	"INFO":    handleInfo,
	"PING":    handlePing,
}
