package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"reactorkv/internal/aof"
	"reactorkv/internal/resp"
	"reactorkv/internal/stats"
	"reactorkv/internal/store"
)

func newTestEngine() *Engine {
	return New(store.New(), nil, stats.New())
}

func TestExecuteSetThenGet(t *testing.T) {
	eng := newTestEngine()

	reply := eng.Execute(resp.NewCommand("SET", "k", "v"), false)
	if string(reply) != "+OK\r\n" {
		t.Fatalf("SET reply = %q, want +OK", reply)
	}

	reply = eng.Execute(resp.NewCommand("GET", "k"), false)
	if string(reply) != "$1\r\nv\r\n" {
		t.Fatalf("GET reply = %q, want bulk v", reply)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	eng := newTestEngine()
	reply := eng.Execute(resp.NewCommand("NOPE"), false)
	if !strings.HasPrefix(string(reply), "-ERR unknown command") {
		t.Fatalf("reply = %q, want unknown-command error", reply)
	}
}

func TestExecuteTransactionEmptyQueueRepliesEmptyArray(t *testing.T) {
	eng := newTestEngine()
	reply := eng.ExecuteTransaction(nil)
	if string(reply) != "*0\r\n" {
		t.Fatalf("reply = %q, want *0\\r\\n", reply)
	}
}

func TestExecuteTransactionRunsEachQueuedCommandAndDoesNotAbortOnFailure(t *testing.T) {
	eng := newTestEngine()
	queue := []resp.Value{
		resp.NewCommand("SET", "a", "1"),
		resp.NewCommand("GET"), // wrong arity: fails, but must not abort the batch
		resp.NewCommand("GET", "a"),
	}
	reply := eng.ExecuteTransaction(queue)
	v, _, err := resp.Parse(reply)
	if err != nil {
		t.Fatalf("parsing transaction reply: %v", err)
	}
	if v.Kind != resp.Array || len(v.Items) != 3 {
		t.Fatalf("reply = %+v, want a 3-element array", v)
	}
	if v.Items[0].Kind != resp.SimpleString || v.Items[0].Str != "OK" {
		t.Errorf("item 0 = %+v, want +OK", v.Items[0])
	}
	if v.Items[1].Kind != resp.Error {
		t.Errorf("item 1 = %+v, want an error (bad arity doesn't abort the rest)", v.Items[1])
	}
	if v.Items[2].Kind != resp.BulkString || string(v.Items[2].Bulk) != "1" {
		t.Errorf("item 2 = %+v, want bulk \"1\"", v.Items[2])
	}
}

func TestRunSweepDeletesExpiredSample(t *testing.T) {
	eng := newTestEngine()
	eng.Execute(resp.NewCommand("SET", "k", "v"), false)
	eng.Execute(resp.NewCommand("PEXPIRE", "k", "1"), false)

	time.Sleep(2 * time.Millisecond)
	eng.RunSweep()
	if eng.ctx.Store.Len() != 0 {
		t.Fatalf("expected the sweeper to eventually evict the expired key")
	}
}

func TestExecuteFromReplaySkipsStatsAndReplication(t *testing.T) {
	log, err := aof.Open(afero.NewMemMapFs(), "replay.aof", aof.Always)
	if err != nil {
		t.Fatalf("aof.Open: %v", err)
	}
	defer log.Close()
	eng := New(store.New(), log, stats.New())

	eng.Execute(resp.NewCommand("SET", "k", "v"), true)
	if report := eng.ctx.Stats.Render(eng.ctx.Store.Len()); !strings.Contains(report, "total_commands_processed:0\r\n") {
		t.Fatalf("replay must not count as a processed command:\n%s", report)
	}
	values, _, err := log.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("replay must not re-append to the log, found %d records", len(values))
	}
}
