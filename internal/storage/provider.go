// Package storage defines the output-tree file-system abstraction.
package storage

import "time"

// Provider is the interface for output tree operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute directory the provider is rooted at.
	Root() string
	// Sub returns a provider rooted at dir, creating it if missing.
	Sub(dir string) (Provider, error)
	// EnsureDir creates dir and its parents; existing directories are fine.
	EnsureDir(dir string) error
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Stat returns the modification time of path. Missing files yield an
	// error matching fs.ErrNotExist.
	Stat(path string) (time.Time, error)
	// Delete removes the file at path.
	Delete(path string) error
	// List returns the stems of regular files in dir whose names end in suffix.
	List(dir, suffix string) ([]string, error)
	// Dirs returns the names of non-hidden subdirectories of dir.
	Dirs(dir string) ([]string, error)
	// RemoveAll removes dir and everything under it.
	RemoveAll(dir string) error
	// Size returns the total size in bytes of files under dir whose names end in suffix.
	Size(dir, suffix string) (int64, error)
}
