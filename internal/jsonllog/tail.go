// Package jsonllog implements the JSONL log parser collaborator spec.md
// §4.1 step 2 calls for: "Incrementally read new JSONL events via the
// parser collaborator and translate tool-use and error records into
// events." Grounded on other_examples' tail-claude watcher.go, narrowed
// from a TUI-driving fsnotify loop to a pull-based incremental reader the
// polling sweep calls once per tick, plus a push-based `Follow` for the
// `logs --follow` CLI (spec.md §6 CLI surface).
package jsonllog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Record is one parsed JSONL line. Only the fields the watcher loop needs
// are modeled; unrecognized records are skipped rather than rejected.
type Record struct {
	Type      string          `json:"type"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Error     string          `json:"error,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// ReadNew reads every complete line appended to path since offset, returning
// the parsed records, the new offset, and any error. A line without a
// trailing newline yet (a write in progress) is left unread and the offset
// stops before it, matching the teacher's incremental-byte-offset approach.
func ReadNew(path string, offset int64) ([]Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("jsonllog: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("jsonllog: stat %s: %w", path, err)
	}
	if info.Size() < offset {
		// The file was truncated or rotated; restart from the beginning.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("jsonllog: seeking %s: %w", path, err)
	}

	reader := bufio.NewReader(f)
	var records []Record
	newOffset := offset
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && err == nil {
			newOffset += int64(len(line))
			trimmed := line[:len(line)-1]
			if rec, ok := parseLine(trimmed); ok {
				records = append(records, rec)
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return records, newOffset, fmt.Errorf("jsonllog: reading %s: %w", path, err)
		}
	}
	return records, newOffset, nil
}

func parseLine(line []byte) (Record, bool) {
	if len(line) == 0 {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, false
	}
	rec.Raw = append(json.RawMessage{}, line...)
	return rec, true
}

// Watcher debounces fsnotify write events on a single JSONL file, used by
// the `logs --follow` CLI surface (spec.md §6).
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher opens an fsnotify watch on path's containing directory.
// fsnotify is directory-scoped on most platforms; watching the file
// directly misses the rename-based atomic rewrite some tools use.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("jsonllog: creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dirOf(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("jsonllog: watching %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{path: path, debounce: debounce, fsw: fsw}, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Follow sends on changed whenever path is written to, debounced so a burst
// of rapid writes coalesces into one signal (grounded on tail-claude's
// watcherDebounce pattern). It runs until the Watcher is closed.
func (w *Watcher) Follow(changed chan<- struct{}) {
	var timer *time.Timer
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
