package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeName is returned for file names that could address anything
// other than a session file directly inside the data directory.
var ErrUnsafeName = errors.New("unsafe file name")

// SafeName accepts a bare session file name: non-empty, no separators or NUL,
// not "." or "..", not absolute, and ending in ".csv".
func SafeName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrUnsafeName
	case strings.ContainsAny(name, `/\`+"\x00"):
		return ErrUnsafeName
	case filepath.IsAbs(name):
		return ErrUnsafeName
	case !strings.HasSuffix(name, ".csv") || name == ".csv":
		return ErrUnsafeName
	}
	return nil
}

// FileSource opens session files through an os.Root, so nothing outside the
// data directory is reachable, symlinks included.
type FileSource struct {
	root *os.Root
}

// OpenFileSource roots a FileSource at dir, which must exist.
func OpenFileSource(dir string) (*FileSource, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening data directory: %w", err)
	}
	return &FileSource{root: root}, nil
}

// Open returns the named session file. Unsafe names yield ErrUnsafeName;
// directories and missing files yield fs.ErrNotExist.
func (s *FileSource) Open(name string) (*os.File, error) {
	if err := SafeName(name); err != nil {
		return nil, err
	}
	f, err := s.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

func (s *FileSource) Close() error {
	return s.root.Close()
}
