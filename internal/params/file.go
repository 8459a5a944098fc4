package params

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/banshee-data/accel.report/internal/fsutil"
	"github.com/banshee-data/accel.report/internal/monitoring"
)

// DefaultParamsDir is the on-device params directory.
const DefaultParamsDir = "/data/params/d"

var ErrInvalidKey = errors.New("invalid params key")

// FileStore keeps one file per key in a directory. Writes go to a hidden
// temporary file first and are renamed into place, so readers never see a
// partial value.
type FileStore struct {
	dir string
	fs  fsutil.FileSystem
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	return NewFileStoreFS(fsutil.OSFileSystem{}, dir)
}

// NewFileStoreFS is NewFileStore over an arbitrary filesystem.
func NewFileStoreFS(fsys fsutil.FileSystem, dir string) (*FileStore, error) {
	if dir == "" {
		dir = DefaultParamsDir
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create params dir: %w", err)
	}
	return &FileStore{dir: dir, fs: fsys}, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Get(key string) (string, bool) {
	if validateKey(key) != nil {
		return "", false
	}
	data, err := s.fs.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			monitoring.Logf("params: failed to read %s: %v", key, err)
		}
		return "", false
	}
	return string(data), true
}

func (s *FileStore) Put(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	tmp := filepath.Join(s.dir, ".tmp_"+key)
	if err := s.fs.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, filepath.Join(s.dir, key)); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := s.fs.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Keys() ([]string, error) {
	names, err := s.fs.ListFiles(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list params: %w", err)
	}
	keys := names[:0]
	for _, n := range names {
		if !strings.HasPrefix(n, ".") {
			keys = append(keys, n)
		}
	}
	return keys, nil
}

func (s *FileStore) Close() error { return nil }

// validateKey rejects keys that would escape the params directory or
// collide with temporary files.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w %q", ErrInvalidKey, key)
	}
	return nil
}
