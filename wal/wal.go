// Package wal implements pouch's single-file, append-only write-ahead log
// (spec.md §4.E): one JSON command per line, fsynced on every append, and
// replayed in full at startup before a server accepts connections.
package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mshaverdo/assert"
	"github.com/mshaverdo/pouch/core"
	"github.com/mshaverdo/pouch/message"
)

// ErrEmptyLog is returned by Replay when the log file exists but contains
// no records -- the expected state on a brand-new deployment's first boot
// (spec.md §9's open question: this is informational, not fatal).
var ErrEmptyLog = errors.New("wal: log file is empty")

// WAL is an append-only, replayable journal of mutating commands. It
// satisfies core.WALWriter. Grounded on
// original_source/server/src/wal.rs's open-append-read file with a
// flush-per-record write path, blended with the teacher's
// controller/keeper.go mutex-guarded-writer idiom (minus the teacher's
// snapshot/multi-file rotation machinery, which spec.md's
// no-persistence-beyond-WAL-replay non-goal removes the need for).
type WAL struct {
	mu   sync.Mutex
	file *os.File
}

var _ core.WALWriter = (*WAL)(nil)

// Open opens (creating if necessary) the single WAL file at path for
// appending and reading.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	return &WAL{file: file}, nil
}

// Append durably writes cmd as one JSON line, flushing and fsyncing before
// returning -- spec.md §4.D rule 2 requires the WAL write to have
// completed before Engine.Apply ever mutates the dictionary, so every
// Append is synchronous all the way to disk.
func (w *WAL) Append(cmd message.Command) error {
	line, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("wal: marshal command: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("wal: write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	return nil
}

// Replay reads every complete line recorded so far and applies it to
// engine in order, returning the number of commands replayed. A partial
// trailing line (the process died mid-write) is discarded rather than
// treated as an error. ErrEmptyLog is returned alongside a count of 0 when
// the file has no records at all.
func (w *WAL) Replay(engine *core.Engine) (count int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("wal: seek to start: %w", err)
	}

	reader := bufio.NewReader(w.file)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 && readErr == nil {
			var cmd message.Command
			if err := json.Unmarshal(bytes.TrimRight(line, "\n"), &cmd); err != nil {
				return count, fmt.Errorf("wal: decode record %d: %w", count+1, err)
			}

			// Engine.Apply logs every mutating action to the WAL before
			// checking type/key validity (spec.md §4.D rule 1, matching
			// original_source/server/src/processor/db.rs's unconditional
			// log_if_some!), so an ordinary record can legitimately replay
			// to a documented error response (e.g. a GETDEL that found
			// nothing to delete the first time around, now replaying
			// against the same still-absent key). Only a WAL I/O failure
			// -- impossible here since replay passes a nil WALWriter -- is
			// fatal and should stop replay.
			resp := engine.Apply(cmd, nil)
			assert.True(!resp.IsFatal(), "wal: replay must never hit a WAL write failure")

			count++
			continue
		}

		if readErr == io.EOF {
			// A non-empty trailing line with no terminating "\n" is a
			// partial write from a crash mid-append; discard it.
			break
		}
		if readErr != nil {
			return count, fmt.Errorf("wal: read: %w", readErr)
		}
	}

	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return count, fmt.Errorf("wal: seek to end: %w", err)
	}

	if count == 0 {
		return 0, ErrEmptyLog
	}
	return count, nil
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
