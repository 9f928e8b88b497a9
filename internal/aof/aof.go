// Package aof implements the durability log: an append-only file whose
// content is a concatenation of serialized Array values, one per mutating
// command, replayed in full on startup.
package aof

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"

	"reactorkv/internal/resp"
)

// SyncPolicy selects when Append forces the data to stable storage.
type SyncPolicy int

const (
	// Always flushes synchronously on every Append.
	Always SyncPolicy = iota
	// EverySec only sets a pending-flush flag on Append; a repeating 1s
	// timer installed by Bootstrap calls FlushIfPending to clear it.
	EverySec
	// No never flushes explicitly; data loss on crash is accepted.
	No
)

// ParseSyncPolicy maps the `appendfsync` configuration value (§6) to a
// SyncPolicy, defaulting to Always for any unrecognized string.
func ParseSyncPolicy(s string) SyncPolicy {
	switch s {
	case "everysec":
		return EverySec
	case "no":
		return No
	default:
		return Always
	}
}

// Log is the append-only command log. A single mutex serializes Append and
// FlushIfPending; the intended deployment is single-threaded so the mutex
// is uncontended, but it guards against a future multi-threaded extension.
type Log struct {
	fs     afero.Fs
	path   string
	file   afero.File
	policy SyncPolicy

	mu      sync.Mutex
	pending bool
}

// Open opens path for append on fs, creating it if absent.
func Open(fs afero.Fs, path string, policy SyncPolicy) (*Log, error) {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("aof: open %s: %w", path, err)
	}
	return &Log{fs: fs, path: path, file: f, policy: policy}, nil
}

// Append serializes v and writes it to the log. If the policy is Always,
// the write is flushed to stable storage before Append returns; otherwise
// a pending-flush flag is set for FlushIfPending to clear later.
func (l *Log) Append(v resp.Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(resp.Serialize(v)); err != nil {
		return fmt.Errorf("aof: write: %w", err)
	}
	if l.policy == Always {
		return l.file.Sync()
	}
	l.pending = true
	return nil
}

// FlushIfPending flushes and clears the pending-flush flag if it is set.
// Installed as the callback of the 1s repeating timer when policy is
// EverySec.
func (l *Log) FlushIfPending() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.pending {
		return nil
	}
	l.pending = false
	return l.file.Sync()
}

// Close performs a final flush regardless of policy and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// Replay reads the whole log and parses values one after another,
// accumulating successes. A crash-truncated final record (Incomplete at
// end-of-file) is reported via the truncated return value rather than an
// error, matching §4.4's "warn and stop" contract; any other parse error is
// returned as err, which the caller (Bootstrap) treats as fatal.
func (l *Log) Replay() (values []resp.Value, truncated bool, err error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, false, fmt.Errorf("aof: read %s: %w", l.path, err)
	}

	offset := 0
	for offset < len(data) {
		v, consumed, perr := resp.Parse(data[offset:])
		if perr != nil {
			if resp.IsIncomplete(perr) {
				return values, true, nil
			}
			return values, false, fmt.Errorf("aof: corrupt log at byte %d: %w", offset, perr)
		}
		values = append(values, v)
		offset += consumed
	}
	return values, false, nil
}
