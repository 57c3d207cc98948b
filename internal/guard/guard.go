package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/riskwatch/riskwatch/internal/logger"
)

var log = logger.ForComponent("guard")

var (
	ErrProtectedFileMissing = errors.New("protected file does not exist")
	ErrNoBackup             = errors.New("no backup present")
	ErrNoChecksum           = errors.New("no recorded checksum")
)

// Guard implements the lock/unlock/restore workflow for a single protected
// file. Locking copies the file to a backup location, records a SHA-256
// checksum, marks the file read-only, and asks git to skip worktree changes.
// The lock is advisory: it discourages edits, it does not prevent them.
type Guard struct {
	file       string
	backupsDir string
	stableTag  string
	git        GitRunner
}

type Status struct {
	File          string `json:"file"`
	Locked        bool   `json:"locked"`
	BackupPresent bool   `json:"backup_present"`
	ChecksumMatch bool   `json:"checksum_match"`
	Checksum      string `json:"checksum,omitempty"`
}

func New(file, backupsDir, stableTag string, git GitRunner) *Guard {
	return &Guard{
		file:       file,
		backupsDir: backupsDir,
		stableTag:  stableTag,
		git:        git,
	}
}

func (g *Guard) File() string { return g.file }

func (g *Guard) backupPath() string {
	return filepath.Join(g.backupsDir, filepath.Base(g.file)+".locked")
}

func (g *Guard) checksumPath() string {
	return filepath.Join(g.backupsDir, filepath.Base(g.file)+".sha256")
}

// Lock backs up the protected file, records its checksum, and applies the
// read-only and skip-worktree flags. It fails immediately if the file is
// missing.
func (g *Guard) Lock(ctx context.Context) error {
	if _, err := os.Stat(g.file); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrProtectedFileMissing, g.file)
		}
		return fmt.Errorf("stat %s: %w", g.file, err)
	}

	if err := os.MkdirAll(g.backupsDir, 0755); err != nil {
		return fmt.Errorf("create backups dir: %w", err)
	}

	if err := copyFile(g.file, g.backupPath()); err != nil {
		return fmt.Errorf("backup %s: %w", g.file, err)
	}

	sum, err := hashFile(g.file)
	if err != nil {
		return fmt.Errorf("hash %s: %w", g.file, err)
	}

	if err := os.WriteFile(g.checksumPath(), []byte(sum+"\n"), 0644); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}

	// Read-only flag is advisory, some filesystems ignore it.
	if err := os.Chmod(g.file, 0444); err != nil {
		log.Warn("could not mark file read-only", "file", g.file, "error", err)
	}

	if _, err := g.git.Run(ctx, "update-index", "--skip-worktree", g.file); err != nil {
		return err
	}

	log.Info("file locked", "file", g.file, "backup", g.backupPath(), "checksum", sum)
	return nil
}

// Unlock reverses the writability and skip-worktree flags. It performs no
// integrity check.
func (g *Guard) Unlock(ctx context.Context) error {
	if err := os.Chmod(g.file, 0644); err != nil {
		log.Warn("could not mark file writable", "file", g.file, "error", err)
	}

	if _, err := g.git.Run(ctx, "update-index", "--no-skip-worktree", g.file); err != nil {
		return err
	}

	log.Info("file unlocked", "file", g.file)
	return nil
}

// Restore recovers the protected file from the local backup when one exists,
// otherwise from the stable git tag, and re-applies the lock.
func (g *Guard) Restore(ctx context.Context) error {
	// The file may still carry the read-only flag from a previous lock.
	if _, err := os.Stat(g.file); err == nil {
		if err := os.Chmod(g.file, 0644); err != nil {
			log.Warn("could not mark file writable", "file", g.file, "error", err)
		}
	}

	if _, err := os.Stat(g.backupPath()); err == nil {
		if err := copyFile(g.backupPath(), g.file); err != nil {
			return fmt.Errorf("restore from backup: %w", err)
		}
		log.Info("restored from backup", "file", g.file, "backup", g.backupPath())
	} else {
		log.Info("no backup present, restoring from tag", "file", g.file, "tag", g.stableTag)
		if _, err := g.git.Run(ctx, "update-index", "--no-skip-worktree", g.file); err != nil {
			log.Debug("no-skip-worktree before checkout failed", "error", err)
		}
		if _, err := g.git.Run(ctx, "checkout", g.stableTag, "--", g.file); err != nil {
			return err
		}
		log.Info("restored from tag", "file", g.file, "tag", g.stableTag)
	}

	return g.Lock(ctx)
}

// Verify compares a fresh hash of the protected file against the checksum
// recorded at lock time.
func (g *Guard) Verify() (bool, error) {
	recorded, err := g.recordedChecksum()
	if err != nil {
		return false, err
	}

	sum, err := hashFile(g.file)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", g.file, err)
	}

	return sum == recorded, nil
}

func (g *Guard) recordedChecksum() (string, error) {
	data, err := os.ReadFile(g.checksumPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoChecksum
		}
		return "", fmt.Errorf("read checksum: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (g *Guard) Status() Status {
	st := Status{File: g.file}

	if info, err := os.Stat(g.file); err == nil {
		st.Locked = info.Mode().Perm()&0200 == 0
	}

	if _, err := os.Stat(g.backupPath()); err == nil {
		st.BackupPresent = true
	}

	if recorded, err := g.recordedChecksum(); err == nil {
		st.Checksum = recorded
		if ok, err := g.Verify(); err == nil {
			st.ChecksumMatch = ok
		}
	}

	return st
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
