package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() { _ = lock.Release() }()

	_, err = AcquireLock(dir)
	if err == nil {
		t.Fatal("expected second acquire to fail")
	}
	if want := fmt.Sprintf("pid=%d", os.Getpid()); !strings.Contains(err.Error(), want) {
		t.Fatalf("lock error should name the owner: got %q want substring %q", err, want)
	}
	if _, err := AcquireLockWait(dir, 120*time.Millisecond); err == nil {
		t.Fatal("expected bounded wait to give up while lock is held")
	}
}

func TestAcquireLockWaitPicksUpReleasedLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatal(err)
	}

	released := make(chan error, 1)
	go func() {
		time.Sleep(100 * time.Millisecond)
		released <- lock.Release()
	}()

	next, err := AcquireLockWait(dir, 2*time.Second)
	if err != nil {
		t.Fatalf("waiter should acquire after release: %v", err)
	}
	if err := <-released; err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := next.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, lockDirName)); !os.IsNotExist(err) {
		t.Fatalf("lock directory should be gone after release, stat err=%v", err)
	}
}

func TestAcquireLockCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "nested")
	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("acquire in missing directory: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if err := (Lock{}).Release(); err != nil {
		t.Fatalf("zero lock release should be a no-op: %v", err)
	}
	if _, err := AcquireLock("  "); err == nil {
		t.Fatal("expected empty directory to be rejected")
	}
}
