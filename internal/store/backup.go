package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/riskwatch/riskwatch/internal/logger"
)

var log = logger.ForComponent("store")

const backupPattern = "news-*.db"

// Backup writes a dated snapshot of the database into dir using VACUUM INTO,
// which copies a consistent image even while the store is open. At most one
// backup per UTC day is kept; an existing snapshot for today is left alone.
func (s *Store) Backup(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backups dir: %w", err)
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	target := filepath.Join(dir, fmt.Sprintf("news-%s.db", stamp))

	if _, err := os.Stat(target); err == nil {
		log.Debug("backup already exists", "path", target)
		return target, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("VACUUM INTO ?", target); err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}

	log.Info("database backed up", "path", target)
	return target, nil
}

// PruneBackups removes the oldest dated snapshots beyond the retention count.
func PruneBackups(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backups dir: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if match, _ := doublestar.Match(backupPattern, entry.Name()); match {
			backups = append(backups, entry.Name())
		}
	}

	if len(backups) <= keep {
		return 0, nil
	}

	// Dated names sort chronologically.
	sort.Strings(backups)

	removed := 0
	for _, name := range backups[:len(backups)-keep] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove backup %s: %w", path, err)
		}
		log.Info("pruned old backup", "path", path)
		removed++
	}

	return removed, nil
}
