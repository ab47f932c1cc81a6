// Package filelock guards result files against concurrent writers and
// writes report files atomically.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process holds the lock.
var ErrLocked = errors.New("file is locked by another process")

// LockSuffix is appended to a target path to name its lock file.
const LockSuffix = ".lock"

// FileLock is an exclusive advisory lock on "<target>.lock".
type FileLock struct {
	flock  *flock.Flock
	target string
}

// New creates an unlocked lock for target.
func New(target string) *FileLock {
	return &FileLock{
		flock:  flock.New(target + LockSuffix),
		target: target,
	}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.flock.Path()
}

// TryLock acquires the lock without blocking. It returns false when the
// lock is held elsewhere.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.target, err)
	}
	return acquired, nil
}

// Unlock releases the lock. The lock file stays in place so waiters
// blocked on it keep contending for the same inode.
func (fl *FileLock) Unlock() error {
	if !fl.flock.Locked() {
		return nil
	}
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.target, err)
	}
	return nil
}

// Release unlocks and removes the lock file. Use it for locks taken with
// Acquire on a file no one else waits for.
func (fl *FileLock) Release() error {
	wasLocked := fl.flock.Locked()
	if err := fl.Unlock(); err != nil {
		return err
	}
	if wasLocked {
		_ = os.Remove(fl.flock.Path())
	}
	return nil
}

// Acquire takes the lock for target without waiting. The parent directory
// is created when missing.
func Acquire(target string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	fl := New(target)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, ErrLocked)
	}
	return fl, nil
}

// AtomicWrite writes data to path through a temp file in the same
// directory and a rename, so readers never see a partial file.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}
