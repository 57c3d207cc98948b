package guard

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGit records invocations and optionally writes file content when asked
// to check out from a tag.
type fakeGit struct {
	calls      [][]string
	tagContent string
}

func (f *fakeGit) Run(ctx context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	if len(args) >= 4 && args[0] == "checkout" && f.tagContent != "" {
		file := args[len(args)-1]
		if err := os.WriteFile(file, []byte(f.tagContent), 0o644); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (f *fakeGit) called(sub string) bool {
	for _, call := range f.calls {
		if strings.Join(call, " ") == sub || strings.HasPrefix(strings.Join(call, " "), sub) {
			return true
		}
	}
	return false
}

func newTestGuard(t *testing.T, content string) (*Guard, *fakeGit, string) {
	t.Helper()

	dir := t.TempDir()
	file := filepath.Join(dir, "commercial_kpi.py")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	git := &fakeGit{}
	g := New(file, filepath.Join(dir, "backups"), "stable-dashboard", git)
	return g, git, file
}

func TestLockCreatesBackupAndChecksum(t *testing.T) {
	g, git, file := newTestGuard(t, "original content\n")

	require.NoError(t, g.Lock(context.Background()))

	backup, err := os.ReadFile(g.backupPath())
	require.NoError(t, err)
	assert.Equal(t, "original content\n", string(backup))

	sum, err := os.ReadFile(g.checksumPath())
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(string(sum)), 64)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o200, "file should be read-only")

	assert.True(t, git.called("update-index --skip-worktree"))

	ok, err := g.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockMissingFile(t *testing.T) {
	dir := t.TempDir()
	g := New(filepath.Join(dir, "absent.py"), filepath.Join(dir, "backups"), "stable-dashboard", &fakeGit{})

	err := g.Lock(context.Background())
	require.ErrorIs(t, err, ErrProtectedFileMissing)
}

func TestVerifyDetectsModification(t *testing.T) {
	g, _, file := newTestGuard(t, "original content\n")
	require.NoError(t, g.Lock(context.Background()))

	require.NoError(t, os.Chmod(file, 0o644))
	require.NoError(t, os.WriteFile(file, []byte("tampered\n"), 0o644))

	ok, err := g.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyWithoutLock(t *testing.T) {
	g, _, _ := newTestGuard(t, "anything\n")

	_, err := g.Verify()
	require.ErrorIs(t, err, ErrNoChecksum)
}

func TestUnlockRestoresWritability(t *testing.T) {
	g, git, file := newTestGuard(t, "original content\n")
	require.NoError(t, g.Lock(context.Background()))

	require.NoError(t, g.Unlock(context.Background()))

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o200, "file should be writable again")
	assert.True(t, git.called("update-index --no-skip-worktree"))
}

func TestRestoreFromBackup(t *testing.T) {
	g, _, file := newTestGuard(t, "original content\n")
	require.NoError(t, g.Lock(context.Background()))

	require.NoError(t, os.Chmod(file, 0o644))
	require.NoError(t, os.WriteFile(file, []byte("tampered\n"), 0o644))

	require.NoError(t, g.Restore(context.Background()))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "original content\n", string(data))

	// Restore re-locks.
	ok, err := g.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestoreFromTagWhenNoBackup(t *testing.T) {
	g, git, file := newTestGuard(t, "working copy\n")
	git.tagContent = "tagged content\n"

	require.NoError(t, g.Restore(context.Background()))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "tagged content\n", string(data))
	assert.True(t, git.called("checkout stable-dashboard --"))
}

func TestStatus(t *testing.T) {
	g, _, _ := newTestGuard(t, "original content\n")

	st := g.Status()
	assert.False(t, st.Locked)
	assert.False(t, st.BackupPresent)
	assert.Empty(t, st.Checksum)

	require.NoError(t, g.Lock(context.Background()))

	st = g.Status()
	assert.True(t, st.Locked)
	assert.True(t, st.BackupPresent)
	assert.True(t, st.ChecksumMatch)
	assert.NotEmpty(t, st.Checksum)
}

func TestWatcherDetectsTamper(t *testing.T) {
	g, _, file := newTestGuard(t, "original content\n")
	require.NoError(t, g.Lock(context.Background()))

	tampered := make(chan TamperEvent, 1)
	w, err := NewWatcher(g, 10*time.Millisecond, func(e TamperEvent) {
		select {
		case tampered <- e:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.Chmod(file, 0o644))
	require.NoError(t, os.WriteFile(file, []byte("tampered\n"), 0o644))

	select {
	case e := <-tampered:
		assert.Equal(t, file, e.File)
	case <-time.After(5 * time.Second):
		t.Fatal("tamper event not delivered")
	}

	require.NotNil(t, w.LastTamper())
}
