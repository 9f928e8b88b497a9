package aof

import (
	"testing"

	"github.com/spf13/afero"

	"reactorkv/internal/resp"
)

func TestAppendAndReplayRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cmds := []resp.Value{
		resp.NewCommand("SET", "x", "1"),
		resp.NewCommand("SET", "y", "2"),
		resp.NewCommand("DEL", "x"),
	}
	for _, c := range cmds {
		if err := log.Append(c); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	replayLog, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer replayLog.Close()

	values, truncated, err := replayLog.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if truncated {
		t.Fatalf("Replay reported truncated on a clean log")
	}
	if len(values) != len(cmds) {
		t.Fatalf("Replay returned %d values, want %d", len(values), len(cmds))
	}
	for i, v := range values {
		name, args, ok := v.AsCommand()
		wantName, wantArgs, _ := cmds[i].AsCommand()
		if !ok || name != wantName || len(args) != len(wantArgs) {
			t.Fatalf("replayed value %d = %+v, want %+v", i, v, cmds[i])
		}
	}
}

func TestReplayTruncatedTailIsWarningNotError(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := log.Append(resp.NewCommand("SET", "a", "1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	full, err := afero.ReadFile(fs, "dump.aof")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := afero.WriteFile(fs, "dump.aof", full[:len(full)-2], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	replayLog, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer replayLog.Close()

	values, truncated, err := replayLog.Replay()
	if err != nil {
		t.Fatalf("Replay returned fatal error on Incomplete-at-tail: %v", err)
	}
	if !truncated {
		t.Fatalf("Replay did not report truncation on a crash-cut tail")
	}
	if len(values) != 0 {
		t.Fatalf("Replay returned %d values from a single truncated record, want 0", len(values))
	}
}

func TestReplayCorruptMidStreamIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := log.Append(resp.NewCommand("SET", "a", "1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	full, _ := afero.ReadFile(fs, "dump.aof")
	full = append(full, []byte("?garbage\r\n")...)
	if err := afero.WriteFile(fs, "dump.aof", full, 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	replayLog, err := Open(fs, "dump.aof", Always)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer replayLog.Close()

	_, _, err = replayLog.Replay()
	if err == nil {
		t.Fatalf("Replay did not fail on a non-Incomplete parse error mid-stream")
	}
}

func TestFlushIfPendingOnlyFlushesWhenPending(t *testing.T) {
	fs := afero.NewMemMapFs()
	log, err := Open(fs, "dump.aof", EverySec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	if err := log.FlushIfPending(); err != nil {
		t.Fatalf("FlushIfPending on idle log: %v", err)
	}
	if err := log.Append(resp.NewCommand("SET", "a", "1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !log.pending {
		t.Fatalf("EverySec Append did not set pending flag")
	}
	if err := log.FlushIfPending(); err != nil {
		t.Fatalf("FlushIfPending: %v", err)
	}
	if log.pending {
		t.Fatalf("pending flag not cleared after FlushIfPending")
	}
}
