// Package coordination provides the lightweight mutual-exclusion primitive
// the daemon lifecycle needs (single watcher instance per configuration
// directory) without introducing a database or IPC mechanism (spec.md §9).
// Grounded on internal/store's atomic-replace idiom: both rely on the
// filesystem's own atomicity guarantees (O_EXCL here, rename there) rather
// than an external lock manager.
package coordination

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"
)

// ErrLocked is returned by Acquire when another live process already holds
// the lock.
var ErrLocked = errors.New("coordination: lock is held by another process")

// FileLock is an advisory, PID-stamped lock file. Acquire uses O_EXCL so
// the create-if-absent check and the create itself are a single atomic
// filesystem operation — no separate check-then-create race.
type FileLock struct {
	path string
	held bool
}

// New returns a FileLock backed by path (typically watcher.pid).
func New(path string) *FileLock {
	return &FileLock{path: path}
}

// Acquire attempts to create the lock file exclusively. If it already
// exists, Acquire checks whether the PID inside it still refers to a live
// process; a stale lock (holder gone) is reclaimed automatically, matching
// the spirit of spec.md §5's tolerance for one-tick-stale shared state.
func (l *FileLock) Acquire() error {
	if err := l.tryCreate(); err == nil {
		l.held = true
		return nil
	} else if !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("coordination: acquiring lock %s: %w", l.path, err)
	}

	stalePID, ok := readPID(l.path)
	if ok && processAlive(stalePID) {
		return ErrLocked
	}

	// Reclaim: the previous holder is gone. Remove and retry once.
	_ = os.Remove(l.path)
	if err := l.tryCreate(); err != nil {
		return fmt.Errorf("coordination: reclaiming lock %s: %w", l.path, err)
	}
	l.held = true
	return nil
}

func (l *FileLock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// Release removes the lock file, if this FileLock holds it.
func (l *FileLock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("coordination: releasing lock %s: %w", l.path, err)
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid refers to a running process. On Unix,
// signal 0 probes existence without delivering an actual signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// retryDelay is exposed for callers that want a small backoff between
// Acquire attempts rather than failing immediately on ErrLocked.
const retryDelay = 100 * time.Millisecond

// RetryDelay returns the recommended backoff between Acquire retries.
func RetryDelay() time.Duration { return retryDelay }
