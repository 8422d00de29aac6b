package storage

import (
	"os"
	"path/filepath"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
)

// LocalStorage implements Storage and Command against a local directory
// tree rooted at Root, using path.ToLocalFile for the component-wise
// mapping from a namespace Path onto a filesystem handle.
type LocalStorage struct {
	Root string
}

// NewLocalStorage constructs a LocalStorage rooted at root. root must
// already exist.
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{Root: root}
}

func (s *LocalStorage) Read(p path.Path) ([]byte, error) {
	local, err := resolveLocal(s.Root, p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(local)
	if os.IsNotExist(err) {
		return nil, errors.NotFound("storage.local", "read", p.String())
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindInvalidArgument, "storage.local", "read", err)
	}
	return data, nil
}

func (s *LocalStorage) Write(p path.Path, data []byte) error {
	local, err := resolveLocal(s.Root, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return errors.Wrap(errors.KindInvalidArgument, "storage.local", "write", err)
	}
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return errors.Wrap(errors.KindInvalidArgument, "storage.local", "write", err)
	}
	return nil
}

// Create makes an empty file at p. Fails with IllegalState if one already
// exists locally — the naming core only calls this after deciding this
// binding owns a path it did not already have.
func (s *LocalStorage) Create(p path.Path) error {
	local, err := resolveLocal(s.Root, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return errors.Wrap(errors.KindInvalidArgument, "storage.local", "create", err)
	}
	f, err := os.OpenFile(local, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.IllegalState("storage.local", "create", "already exists: "+p.String())
		}
		return errors.Wrap(errors.KindInvalidArgument, "storage.local", "create", err)
	}
	return f.Close()
}

func (s *LocalStorage) Delete(p path.Path) error {
	local, err := resolveLocal(s.Root, p)
	if err != nil {
		return err
	}
	if err := os.Remove(local); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound("storage.local", "delete", p.String())
		}
		return errors.Wrap(errors.KindInvalidArgument, "storage.local", "delete", err)
	}
	return nil
}

// LocalPaths enumerates the files already on disk under Root, the list a
// storage server passes to Registration.Register at startup.
func (s *LocalStorage) LocalPaths() ([]path.Path, error) {
	return path.ListLocal(s.Root)
}
