package stats

import "testing"

func TestCountersIncrementIndependently(t *testing.T) {
	s := New()
	s.ClientConnected()
	s.ClientConnected()
	s.ClientDisconnected()
	s.CommandProcessed()
	s.Hit()
	s.Hit()
	s.Miss()

	if got := s.Clients(); got != 1 {
		t.Fatalf("Clients() = %d, want 1", got)
	}

	report := s.Render(3)
	for _, want := range []string{
		"# Server", "# Clients", "# Stats", "# Keyspace",
		"connected_clients:1", "total_commands_processed:1",
		"keyspace_hits:2", "keyspace_misses:1",
		"db0:keys=3,expires=0,avg_ttl=0",
	} {
		if !contains(report, want) {
			t.Fatalf("Render() missing %q, got:\n%s", want, report)
		}
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
