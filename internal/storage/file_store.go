// Package storage keeps draft drawings and export artifacts on local disk.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-form-drafts/internal/domain"
)

const (
	imagesDir  = "images"
	exportsDir = "exports"
	tmpSuffix  = ".tmp"
)

// LocalFileStore lays files out as
//
//	<root>/images/<userId>/<draftId>.png
//	<root>/exports/<userId>/<draftId>.pdf
type LocalFileStore struct {
	root   string
	logger domain.Logger
}

func NewLocalFileStore(root string, logger domain.Logger) (*LocalFileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalFileStore{root: abs, logger: logger}, nil
}

func (s *LocalFileStore) Root() string { return s.root }

func (s *LocalFileStore) DrawingPath(userID, draftID string) string {
	return filepath.Join(s.root, imagesDir, safeSegment(userID), safeSegment(draftID)+".png")
}

func (s *LocalFileStore) ExportPath(userID, draftID string) string {
	return filepath.Join(s.root, exportsDir, safeSegment(userID), safeSegment(draftID)+".pdf")
}

// WriteAtomic writes data next to path and renames it into place, so readers
// see either the old file or the complete new one.
func (s *LocalFileStore) WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// TempPath returns a fresh temp file path beside path for writers that need a
// file name rather than bytes. The caller renames it with Commit or removes it.
func (s *LocalFileStore) TempPath(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*"+tmpSuffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}

// Commit renames a temp file produced by TempPath onto path.
func (s *LocalFileStore) Commit(tmpPath, path string) error {
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *LocalFileStore) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes path. A missing file is not an error.
func (s *LocalFileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *LocalFileStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SweepTemp removes leftover temp files older than maxAge and returns how many
// were removed.
func (s *LocalFileStore) SweepTemp(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), tmpSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			} else {
				s.logger.Warn("Failed to remove temp file", "path", path, "error", err)
			}
		}
		return nil
	})
	return removed, err
}

// safeSegment keeps ids from escaping their directory.
func safeSegment(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
