// Package storage manages the upload directory: generating stored names,
// writing new files exclusively, listing what is stored, and removing files
// without ever leaving the directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrInvalidName is returned for names that are empty, contain a path
	// separator, point outside the directory, or are excluded.
	ErrInvalidName = errors.New("invalid file name")

	// ErrNamesExhausted is returned when no free name was found within
	// MaxNameAttempts tries.
	ErrNamesExhausted = errors.New("could not find a free file name")
)

// Entry describes one stored file.
type Entry struct {
	Name    string
	Size    int64
	Created time.Time
}

// Usage reports capacity of the filesystem backing the store.
type Usage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Store is a flat directory of uploaded files.
type Store struct {
	dir      string
	excluded map[string]bool

	// Overridable in tests.
	prefix  func() (string, error)
	info    func(fs.DirEntry) (fs.FileInfo, error)
	created func(path string, fi fs.FileInfo) (time.Time, bool)
}

// Option configures a Store.
type Option func(*Store)

// WithExcluded hides names from listings, serving and removal.
func WithExcluded(names ...string) Option {
	return func(s *Store) {
		for _, n := range names {
			s.excluded[n] = true
		}
	}
}

func birthCreated(path string, _ fs.FileInfo) (time.Time, bool) {
	return birthTime(path)
}

// WithModTimeFallback lists files whose filesystem records no birth time
// using their modification time instead of leaving them out.
func WithModTimeFallback() Option {
	return func(s *Store) {
		s.created = func(path string, fi fs.FileInfo) (time.Time, bool) {
			if t, ok := birthTime(path); ok {
				return t, true
			}
			return fi.ModTime(), true
		}
	}
}

// New returns a Store rooted at dir, which must already exist.
func New(dir string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat upload dir: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("upload dir %s is not a directory", abs)
	}

	s := &Store{
		dir:      filepath.Clean(abs),
		excluded: make(map[string]bool),
		prefix:   randomPrefix,
		info:     fs.DirEntry.Info,
		created:  birthCreated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string { return s.dir }

// Path maps a stored name to its absolute path, refusing anything that
// would resolve outside the directory.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") || s.excluded[name] {
		return "", ErrInvalidName
	}
	full := filepath.Join(s.dir, name)
	if filepath.Dir(full) != s.dir {
		return "", ErrInvalidName
	}
	return full, nil
}

// Create stores the contents of r under a name from GenerateName and returns
// that name and the number of bytes written. The file is opened with O_EXCL,
// so a name taken between the existence check and the write is never
// overwritten and a fresh name is generated instead; a partially written
// file is removed on failure.
func (s *Store) Create(ext string, r io.Reader) (string, int64, error) {
	for attempt := 0; attempt < MaxNameAttempts; attempt++ {
		name, err := s.GenerateName(ext)
		if err != nil {
			return "", 0, err
		}
		full, err := s.Path(name)
		if err != nil {
			return "", 0, err
		}

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, err
		}

		n, err := io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(full)
			return "", 0, err
		}
		return name, n, nil
	}
	return "", 0, ErrNamesExhausted
}

// Open opens a stored file for reading. Directories, invalid and excluded
// names all report fs.ErrNotExist.
func (s *Store) Open(name string) (*os.File, fs.FileInfo, error) {
	full, err := s.Path(name)
	if err != nil {
		return nil, nil, fs.ErrNotExist
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, nil, fs.ErrNotExist
	}
	return f, fi, nil
}

// Remove deletes a stored file. Directories are never removed.
func (s *Store) Remove(name string) error {
	full, err := s.Path(name)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(full)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return ErrInvalidName
	}
	return os.Remove(full)
}

// List returns every stored file in directory order. Directories and
// excluded names are left out, as are entries whose metadata or creation
// time cannot be read.
func (s *Store) List() ([]Entry, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() || s.excluded[de.Name()] {
			continue
		}
		fi, err := s.info(de)
		if err != nil || fi.IsDir() {
			continue
		}
		created, ok := s.created(filepath.Join(s.dir, de.Name()), fi)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Size:    fi.Size(),
			Created: created,
		})
	}
	return entries, nil
}

// DiskUsage reports the capacity of the filesystem holding the store.
func (s *Store) DiskUsage() (Usage, error) {
	return diskUsage(s.dir)
}
