package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/certo-acme/certo/acmeerr"
)

// FileStore persists account objects as files under <base>/accounts/, one
// file per (kind, name) pair: <name>.dir, <name>.acc, <name>.key.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a FileStore rooted at baseDir, creating the accounts/
// subdirectory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	accounts := filepath.Join(baseDir, "accounts")
	if err := os.MkdirAll(accounts, 0700); err != nil {
		return nil, acmeerr.StoreIOError("creating %q: %s", accounts, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(kind ObjectKind, accountName string) string {
	return filepath.Join(s.baseDir, "accounts",
		fmt.Sprintf("%s.%s", accountName, kind.Ext()))
}

// Read returns the whole contents of the object's file.
func (s *FileStore) Read(kind ObjectKind, accountName string) ([]byte, error) {
	filename := s.path(kind, accountName)
	payload, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, acmeerr.StoreNotFoundError("no %s stored for account %q",
			kind, accountName)
	}
	if err != nil {
		return nil, acmeerr.StoreIOError("reading %q: %s", filename, err)
	}
	return payload, nil
}

// Write replaces the object's file. The payload lands in a temp file first
// and is renamed into place so a crashed write never leaves a partial object.
// Files are created 0600: one of the kinds is a private key.
func (s *FileStore) Write(kind ObjectKind, accountName string, payload []byte) error {
	filename := s.path(kind, accountName)
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*")
	if err != nil {
		return acmeerr.StoreIOError("creating temp file for %q: %s", filename, err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return acmeerr.StoreIOError("setting mode on %q: %s", tmpName, err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return acmeerr.StoreIOError("writing %q: %s", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return acmeerr.StoreIOError("closing %q: %s", tmpName, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return acmeerr.StoreIOError("renaming %q to %q: %s", tmpName, filename, err)
	}
	return nil
}
