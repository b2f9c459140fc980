package store

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

type FileStore struct {
	BasicStore
	fs afero.Fs
}

func (b *BasicStore) WithFileSystem(fs afero.Fs) *FileStore {
	return &FileStore{*b, fs}
}

func (f FileStore) FileExists(path string) (bool, error) {
	fileExists, err := afero.Exists(f.fs, path)
	if err != nil {
		return false, goldenerrors.WrapAndTrace(err)
	}
	return fileExists, nil
}

// ReadProfile reads a persisted profile document as opaque bytes. A
// missing or empty template file is a PersistenceError, never a skip.
func (f FileStore) ReadProfile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.PersistenceError{Path: path, Op: "read", Err: err})
	}
	if len(data) == 0 {
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.PersistenceError{Path: path, Op: "read", Err: goldenerrors.New("file is empty")})
	}
	return data, nil
}

// WriteProfile persists an exported profile document at the group's
// template path, creating parent directories as needed.
func (f FileStore) WriteProfile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := f.fs.MkdirAll(dir, 0o775); err != nil {
			return goldenerrors.WrapAndTrace(&goldenerrors.PersistenceError{Path: path, Op: "write", Err: err})
		}
	}
	if err := afero.WriteFile(f.fs, path, data, os.FileMode(0o644)); err != nil {
		return goldenerrors.WrapAndTrace(&goldenerrors.PersistenceError{Path: path, Op: "write", Err: err})
	}
	return nil
}
