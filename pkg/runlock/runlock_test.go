package runlock

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndReleaseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	lock.Release()
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed after release, err=%v", err)
	}
}

func TestAcquireFailsWhileHeld(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	_, err = Acquire(context.Background(), dir)
	if err == nil {
		t.Fatal("expected second acquisition to fail while lock is active")
	}
	var active *ErrLockActive
	if !isErrLockActive(err, &active) {
		t.Fatalf("expected ErrLockActive, got %v (%T)", err, err)
	}
}

func isErrLockActive(err error, target **ErrLockActive) bool {
	if e, ok := err.(*ErrLockActive); ok {
		*target = e
		return true
	}
	return false
}

func TestStaleLockIsTakenOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	stale := LockContent{PID: 999999, Hostname: "ghost", LastUpdate: time.Now().Add(-time.Hour)}
	data, _ := json.MarshalIndent(stale, "", "  ")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("expected stale lock takeover to succeed, got %v", err)
	}
	lock.Release()
}
