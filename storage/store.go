package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/scribe/util"
)

// ErrOutsideBase is returned for paths that resolve outside the base directory.
var ErrOutsideBase = errors.New("storage: path outside base directory")

// fallbackFileName is used when a client sends no usable file name.
const fallbackFileName = "audio"

// Store manages the task directory tree under a base path.
type Store struct {
	basePath string
}

// New creates the base directory if needed and returns a Store rooted there.
func New(cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Store{basePath: abs}, nil
}

// BasePath returns the absolute root directory.
func (s *Store) BasePath() string { return s.basePath }

// TaskDir returns the directory that holds a task's upload and artifacts.
func (s *Store) TaskDir(username, taskID string) string {
	return filepath.Join(s.basePath, util.SanitizePathSegment(username), util.SanitizePathSegment(taskID))
}

// ArtifactPath returns the path of a task's artifact with the given extension.
func (s *Store) ArtifactPath(username, taskID, ext string) string {
	return filepath.Join(s.TaskDir(username, taskID), ArtifactName(taskID, ext))
}

// ArtifactName returns "<task_id>.<ext>".
func ArtifactName(taskID, ext string) string {
	return util.SanitizePathSegment(taskID) + "." + strings.TrimPrefix(ext, ".")
}

// SaveUpload copies r into the task directory under the sanitized file name
// and returns the absolute path written.
func (s *Store) SaveUpload(ctx context.Context, username, taskID, fileName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := util.SanitizeFileName(fileName)
	if name == "" {
		name = fallbackFileName
	}
	dir := s.TaskDir(username, taskID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}

	fullPath := filepath.Join(dir, name)
	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return fullPath, nil
}

// WriteFile atomically replaces dir/name with data. dir must lie under the
// base path; it is created when missing.
func (s *Store) WriteFile(ctx context.Context, dir, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.contains(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: rename %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(path string) (bool, error) {
	if err := s.contains(path); err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// RemoveTaskDir deletes a task directory and everything in it. A missing
// directory is not an error.
func (s *Store) RemoveTaskDir(username, taskID string) error {
	dir := s.TaskDir(username, taskID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage: remove task directory: %w", err)
	}
	return nil
}

// Writable reports whether the base directory is usable.
func (s *Store) Writable() error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("storage: stat base: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a directory", s.basePath)
	}
	return nil
}

func (s *Store) contains(path string) error {
	rel, err := filepath.Rel(s.basePath, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrOutsideBase
	}
	return nil
}
