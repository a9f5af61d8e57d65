package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Disk-backed attachment storage served through /cdn/. A handle is minted
// before the upload happens and only becomes message-owned when a message is
// created referencing it; until then the uploader may delete it.

type Store struct {
	sugar   *zap.SugaredLogger
	dir     string
	baseURL string
	mutex   sync.Mutex
}

func Setup(sugar *zap.SugaredLogger, dir string, baseURL string) (*Store, error) {
	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		return nil, err
	}

	return &Store{sugar: sugar, dir: dir, baseURL: baseURL}, nil
}

// BeginUpload mints a fresh handle. Nothing is written until Put.
func (s *Store) BeginUpload() (string, error) {
	handle, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return handle.String(), nil
}

// Put writes the blob for a previously minted handle. A handle is
// one-time-use: writing to an already-written handle fails.
func (s *Store) Put(handle string, r io.Reader) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, r)
	return err
}

// ResolveURL returns the public URL for a handle, or false if the blob is
// gone or was never uploaded.
func (s *Store) ResolveURL(handle string) (string, bool) {
	path, err := s.path(handle)
	if err != nil {
		return "", false
	}

	_, err = os.Stat(path)
	if err != nil {
		return "", false
	}

	return fmt.Sprintf("%s/%s", s.baseURL, handle), true
}

// Delete removes a blob. Deleting an absent blob is not an error, so
// retries and double-deletes are safe.
func (s *Store) Delete(handle string) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path rejects anything that isn't a minted handle, so a handle can never
// escape the attachment directory.
func (s *Store) path(handle string) (string, error) {
	parsed, err := uuid.Parse(handle)
	if err != nil {
		return "", fmt.Errorf("invalid blob handle [%s]", handle)
	}
	return filepath.Join(s.dir, parsed.String()), nil
}
