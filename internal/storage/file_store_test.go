package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-form-drafts/pkg/logger"
)

func newStore(t *testing.T) *LocalFileStore {
	t.Helper()
	s, err := NewLocalFileStore(t.TempDir(), logger.Nop())
	require.NoError(t, err)
	return s
}

func TestPathsFollowConvention(t *testing.T) {
	s := newStore(t)

	assert.Equal(t, filepath.Join(s.Root(), "images", "u1", "d1.png"), s.DrawingPath("u1", "d1"))
	assert.Equal(t, filepath.Join(s.Root(), "exports", "u1", "d1.pdf"), s.ExportPath("u1", "d1"))
}

func TestPathsCannotEscapeRoot(t *testing.T) {
	s := newStore(t)

	p := s.DrawingPath("../..", "../../etc/passwd")

	assert.Equal(t, filepath.Join(s.Root(), "images", ".._.."), filepath.Dir(p))
	assert.Equal(t, ".._.._etc_passwd.png", filepath.Base(p))
}

func TestWriteAtomic_OverwritesAndLeavesNoTemp(t *testing.T) {
	s := newStore(t)
	path := s.ExportPath("u1", "d1")

	require.NoError(t, s.WriteAtomic(path, []byte("first")))
	require.NoError(t, s.WriteAtomic(path, []byte("second")))

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTempPathAndCommit(t *testing.T) {
	s := newStore(t)
	path := s.ExportPath("u1", "d1")

	tmp, err := s.TempPath(path)
	require.NoError(t, err)
	assert.False(t, s.Exists(path))
	require.NoError(t, os.WriteFile(tmp, []byte("pdf"), 0o644))

	require.NoError(t, s.Commit(tmp, path))
	assert.True(t, s.Exists(path))
	assert.False(t, s.Exists(tmp))
}

func TestExists(t *testing.T) {
	s := newStore(t)

	assert.False(t, s.Exists(""))
	assert.False(t, s.Exists(s.DrawingPath("u", "missing")))
	assert.False(t, s.Exists(s.Root()), "directories are not files")
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	p := s.DrawingPath("u", "d")
	require.NoError(t, s.WriteAtomic(p, []byte("png")))

	require.NoError(t, s.Remove(p))
	assert.False(t, s.Exists(p))
	assert.NoError(t, s.Remove(p), "missing file is fine")
}

func TestSweepTemp_RemovesOnlyStaleTempFiles(t *testing.T) {
	s := newStore(t)
	dir := filepath.Join(s.Root(), "exports", "u1")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	stale := filepath.Join(dir, "d1.pdf.123.tmp")
	fresh := filepath.Join(dir, "d2.pdf.456.tmp")
	keep := filepath.Join(dir, "d3.pdf")
	for _, p := range []string{stale, fresh, keep} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(keep, old, old))

	n, err := s.SweepTemp(time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, keep)
}
