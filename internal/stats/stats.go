// Package stats holds the server's atomic counters and renders the INFO
// reply. Counters are safe to read from a goroutine other than the event
// loop (e.g. a future metrics exporter); no observer is required.
package stats

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// Stats is the process-wide singleton handle passed by reference into the
// Reactor and the KV Engine at construction (per the dispatch/singleton
// design note: no global initialization order is relied on).
type Stats struct {
	start    time.Time
	clients  atomic.Int64
	commands atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
}

// New returns a Stats with its start instant set to now.
func New() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) ClientConnected()    { s.clients.Inc() }
func (s *Stats) ClientDisconnected() { s.clients.Dec() }
func (s *Stats) CommandProcessed()   { s.commands.Inc() }
func (s *Stats) Hit()                { s.hits.Inc() }
func (s *Stats) Miss()               { s.misses.Inc() }

// Clients returns the current connected-client count.
func (s *Stats) Clients() int64 { return s.clients.Load() }

// Render produces the INFO reply body: sections "# Server", "# Clients",
// "# Stats", "# Keyspace", each line "name:value\r\n".
func (s *Stats) Render(numKeys int64) string {
	var b strings.Builder
	uptime := int64(time.Since(s.start).Seconds())

	b.WriteString("# Server\r\n")
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", uptime)

	b.WriteString("# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", s.clients.Load())

	b.WriteString("# Stats\r\n")
	fmt.Fprintf(&b, "total_commands_processed:%d\r\n", s.commands.Load())
	fmt.Fprintf(&b, "keyspace_hits:%d\r\n", s.hits.Load())
	fmt.Fprintf(&b, "keyspace_misses:%d\r\n", s.misses.Load())

	b.WriteString("# Keyspace\r\n")
	fmt.Fprintf(&b, "db0:keys=%d,expires=0,avg_ttl=0\r\n", numKeys)

	return b.String()
}
