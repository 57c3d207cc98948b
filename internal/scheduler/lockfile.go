package scheduler

import (
	"errors"
	"fmt"
	"os"
)

// ErrLockHeld means another daemon instance owns the lock file.
var ErrLockHeld = errors.New("daemon already running (lock held)")

// LockFile enforces single-instance discipline with an advisory file lock.
// The lock dies with the process, so a crashed daemon never leaves a stale
// lock behind.
type LockFile struct {
	path string
	file *os.File
}

func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

func (l *LockFile) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := l.platformLock(f); err != nil {
		f.Close()
		return err
	}

	l.file = f
	return nil
}

func (l *LockFile) Release() error {
	if l.file == nil {
		return nil
	}

	l.platformUnlock(l.file)

	err := l.file.Close()
	l.file = nil

	os.Remove(l.path)

	return err
}

func (l *LockFile) IsLocked() bool {
	return l.file != nil
}
