package shaders

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SourceProvider supplies shader text and its modification time.
type SourceProvider interface {
	ReadSource(path string) (string, error)
	ModTime(path string) (time.Time, error)
}

// FileSource reads shaders from disk, relative to Dir.
type FileSource struct {
	Dir string
}

func (s FileSource) resolve(path string) string {
	if s.Dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}

func (s FileSource) ReadSource(path string) (string, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return "", fmt.Errorf("shader source: %w", err)
	}
	return string(data), nil
}

func (s FileSource) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return time.Time{}, fmt.Errorf("shader source: %w", err)
	}
	return info.ModTime(), nil
}

// EmbeddedSource serves the shaders compiled into the binary. Its files never
// change, so nothing loaded from it is ever reloaded.
type EmbeddedSource struct{}

func (EmbeddedSource) ReadSource(path string) (string, error) {
	if path != EmbeddedPath {
		return "", fmt.Errorf("shader source: no embedded file %q", path)
	}
	return ShadersGLSL, nil
}

func (EmbeddedSource) ModTime(path string) (time.Time, error) {
	if path != EmbeddedPath {
		return time.Time{}, fmt.Errorf("shader source: no embedded file %q", path)
	}
	return time.Time{}, nil
}
