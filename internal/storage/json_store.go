package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/pkg/errors"
)

// JSONStore reads and writes whole JSON documents on the local
// filesystem. Every write replaces the full document; records are small
// enough that partial updates are not worth the complexity.
type JSONStore struct {
	baseDir string
	logger  *zap.Logger
}

func NewJSONStore(baseDir string, logger *zap.Logger) *JSONStore {
	return &JSONStore{baseDir: baseDir, logger: logger}
}

func (s *JSONStore) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// Read unmarshals the document at path into dest. A missing file is not
// an error: dest is left at its zero value so callers start empty.
func (s *JSONStore) Read(path string, dest any) error {
	full := s.resolve(path)

	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewStorageError("read failed", "read", full, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return errors.NewStorageError("unmarshal failed", "read", full, err)
	}
	return nil
}

// Write marshals value and replaces the document at path, creating
// parent directories as needed. The document is written to a temp file
// and renamed so a crash mid-write never leaves a truncated record.
func (s *JSONStore) Write(path string, value any) error {
	full := s.resolve(path)

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.NewStorageError("marshal failed", "write", full, err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.NewStorageError("mkdir failed", "write", full, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewStorageError("write failed", "write", full, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return errors.NewStorageError("rename failed", "write", full, err)
	}

	s.logger.Debug("Document written", zap.String("path", full), zap.Int("bytes", len(data)))
	return nil
}

func (s *JSONStore) Exists(path string) bool {
	_, err := os.Stat(s.resolve(path))
	return err == nil
}

func (s *JSONStore) Delete(path string) error {
	full := s.resolve(path)
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("delete failed", "delete", full, err)
	}
	return nil
}

// List returns paths under dir matching pattern, relative to the store's
// base directory. A missing directory lists as empty.
func (s *JSONStore) List(dir, pattern string) ([]string, error) {
	full := s.resolve(dir)

	matches, err := filepath.Glob(filepath.Join(full, pattern))
	if err != nil {
		return nil, errors.NewStorageError("list failed", "list", full, err)
	}

	result := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(s.baseDir, m)
		if err != nil {
			rel = m
		}
		result = append(result, rel)
	}
	return result, nil
}

func (s *JSONStore) BaseDir() string {
	return s.baseDir
}
