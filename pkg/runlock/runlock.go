// Package runlock guards a source directory against two concurrent uploader
// runs racing a delete against each other's in-flight upload.
package runlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/util"
)

// LockFileName is the sidecar written inside the source directory.
const LockFileName = ".~webdav-uploader.lock"

// LockContent is the JSON payload recorded in the lock file.
type LockContent struct {
	PID        int64     `json:"pid"`
	Hostname   string    `json:"hostname"`
	LastUpdate time.Time `json:"last_update"`
}

// ErrLockActive is returned when another live process holds the lock.
type ErrLockActive struct {
	PID       int64
	Hostname  string
	TimeSince time.Duration
}

func (e *ErrLockActive) Error() string {
	return fmt.Sprintf("run lock is active, held by PID %d on %s, last updated %s ago", e.PID, e.Hostname, e.TimeSince.Truncate(time.Second))
}

const (
	heartbeatInterval = time.Minute
	staleTimeout       = 3 * heartbeatInterval
	lockFileMode       = util.UserWritableFilePerms
)

// Lock represents an acquired run lock; call Release when the run ends.
type Lock struct {
	path   string
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	held   bool
}

// Acquire attempts to take the run lock over sourceDir, taking over a stale
// lock (no heartbeat update for 3 intervals) if found.
func Acquire(ctx context.Context, sourceDir string) (*Lock, error) {
	path := filepath.Join(sourceDir, LockFileName)
	maxAttempts := 3

	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lock, err := tryAcquire(path)
		if err == nil {
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to access lock file: %w", err)
		}

		content, readErr := readLockContentSafely(path)
		if readErr != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		elapsed := time.Since(content.LastUpdate)
		if elapsed < staleTimeout {
			return nil, &ErrLockActive{PID: content.PID, Hostname: content.Hostname, TimeSince: elapsed}
		}

		plog.Warn("found stale run lock", "pid", content.PID, "age", elapsed)
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", removeErr)
		}
		plog.Info("stale run lock removed, retrying acquisition")
	}

	return nil, fmt.Errorf("failed to acquire run lock after %d attempts (contention)", maxAttempts)
}

func tryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		return nil, err
	}
	f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	l := &Lock{path: path, ctx: ctx, cancel: cancel, held: true}

	if err := l.updateContent(); err != nil {
		l.cleanup()
		return nil, err
	}

	go l.heartbeat()
	return l, nil
}

// Release stops the heartbeat and removes the lock file.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.cancel()
	l.cleanup()
	l.held = false
}

func (l *Lock) cleanup() {
	if err := os.Remove(l.path); err != nil {
		if !os.IsNotExist(err) {
			plog.Warn("failed to remove run lock file", "path", l.path, "error", err)
		}
	}
}

func (l *Lock) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			if err := l.updateContent(); err != nil {
				plog.Warn("run lock heartbeat failed", "error", err)
			}
		}
	}
}

func (l *Lock) updateContent() error {
	hostname, _ := os.Hostname()
	content := LockContent{
		PID:        int64(os.Getpid()),
		Hostname:   hostname,
		LastUpdate: time.Now(),
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, lockFileMode)
}

func readLockContentSafely(path string) (LockContent, error) {
	var lastErr error
	for i := 0; i < 3; i++ {
		f, err := os.Open(path)
		if err != nil {
			return LockContent{}, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			lastErr = err
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if len(data) == 0 {
			lastErr = errors.New("lock file is empty")
			time.Sleep(50 * time.Millisecond)
			continue
		}
		var content LockContent
		if err := json.Unmarshal(data, &content); err != nil {
			lastErr = err
			time.Sleep(50 * time.Millisecond)
			continue
		}
		return content, nil
	}
	return LockContent{}, fmt.Errorf("failed to read valid lock content: %w", lastErr)
}
