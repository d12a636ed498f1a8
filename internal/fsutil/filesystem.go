// Package fsutil abstracts the files the pipeline reads and writes (schema
// documents, QR batch files, override files, audit reports) so tests can run
// against an in-memory afero tree.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// FileSystem is the subset of filesystem operations the pipeline uses.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// Stat returns a FileInfo describing the named file.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// Glob returns the sorted names of files matching pattern.
	Glob(pattern string) ([]string, error)

	// Exists checks if a file or directory exists.
	Exists(name string) bool
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// AferoFileSystem implements FileSystem on an afero.Fs.
type AferoFileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem returns an empty in-memory filesystem for tests.
func NewMemoryFileSystem() *AferoFileSystem {
	return &AferoFileSystem{Fs: afero.NewMemMapFs()}
}

func (a *AferoFileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(a.Fs, name)
}

// WriteFile creates any missing parent directories, then writes the file.
func (a *AferoFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := a.Fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(a.Fs, name, data, perm)
}

func (a *AferoFileSystem) Stat(name string) (fs.FileInfo, error) {
	return a.Fs.Stat(name)
}

func (a *AferoFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return a.Fs.MkdirAll(path, perm)
}

func (a *AferoFileSystem) Glob(pattern string) ([]string, error) {
	matches, err := afero.Glob(a.Fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (a *AferoFileSystem) Exists(name string) bool {
	ok, err := afero.Exists(a.Fs, name)
	return err == nil && ok
}
