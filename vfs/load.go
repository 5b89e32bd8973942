package vfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/das/fen/interp"
)

// LoadHandle represents dynamically loaded code. Unload releases it.
type LoadHandle struct {
	Path   string
	Unload func() error
}

// Loader loads native code from a path that is guaranteed to live on
// the native filesystem. The host supplies it; the core only arranges
// that the path it sees is native.
type Loader func(nativePath string) (*LoadHandle, error)

// Load loads native code from a path value. When the path's
// filesystem is not the native one the file is copied into a
// uniquely-named native temporary first, and the returned handle's
// Unload both unloads and deletes the temporary.
func (s *State) Load(path *interp.Obj, loader Loader) (*LoadHandle, error) {
	norm, err := s.Normalize(path)
	if err != nil {
		return nil, err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return nil, err
	}
	if _, native := rec.FS.(*NativeFS); native {
		return loader(norm.String())
	}

	src, err := rec.FS.Open(norm.String(), os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't load %q: %w", path.String(), err)
	}
	defer src.Close()

	tmpPath := filepath.Join(os.TempDir(), "fen-load-"+uuid.NewString())
	dst, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		return nil, fmt.Errorf("couldn't create load temporary: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("couldn't copy %q to native temporary: %w", path.String(), err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	h, err := loader(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	inner := h.Unload
	return &LoadHandle{
		Path: norm.String(),
		Unload: func() error {
			var err error
			if inner != nil {
				err = inner()
			}
			if rmErr := os.Remove(tmpPath); err == nil {
				err = rmErr
			}
			return err
		},
	}, nil
}
