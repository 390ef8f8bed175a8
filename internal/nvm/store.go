// Package nvm models the satellite's non-volatile byte store and the
// counters persisted in it.
package nvm

import (
	"errors"
	"fmt"
	"os"
)

var (
	ErrStoreUnavailable = errors.New("nvm: store unavailable")
	ErrOutOfRange       = errors.New("nvm: offset out of range")
)

// Store is a fixed-size array of non-volatile bytes. Writes are whole:
// a multi-byte Write either lands completely or not at all from the
// point of view of a later boot.
type Store interface {
	Read(offset, n int) ([]byte, error)
	Write(offset int, p []byte) error
	Size() int
}

// FileStore keeps the byte array in a regular file, syncing every write
// so the cell survives a power cycle.
type FileStore struct {
	f    *os.File
	size int
}

// OpenFileStore opens or creates the backing file and pads it to size.
func OpenFileStore(path string, size int) (*FileStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrStoreUnavailable, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return &FileStore{f: f, size: size}, nil
}

func (s *FileStore) Read(offset, n int) ([]byte, error) {
	if err := s.check(offset, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := s.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("nvm: read at %d: %w", offset, err)
	}
	return buf, nil
}

func (s *FileStore) Write(offset int, p []byte) error {
	if err := s.check(offset, len(p)); err != nil {
		return err
	}
	if _, err := s.f.WriteAt(p, int64(offset)); err != nil {
		return fmt.Errorf("nvm: write at %d: %w", offset, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("nvm: sync: %w", err)
	}
	return nil
}

func (s *FileStore) Size() int { return s.size }

func (s *FileStore) Close() error { return s.f.Close() }

func (s *FileStore) check(offset, n int) error {
	if offset < 0 || n < 0 || offset+n > s.size {
		return fmt.Errorf("%w: offset=%d len=%d size=%d", ErrOutOfRange, offset, n, s.size)
	}
	return nil
}

// MemStore is an in-memory Store for tests and benchtop rigs.
type MemStore struct {
	data []byte
}

func NewMemStore(size int) *MemStore {
	return &MemStore{data: make([]byte, size)}
}

func (s *MemStore) Read(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(s.data) {
		return nil, fmt.Errorf("%w: offset=%d len=%d size=%d", ErrOutOfRange, offset, n, len(s.data))
	}
	out := make([]byte, n)
	copy(out, s.data[offset:offset+n])
	return out, nil
}

func (s *MemStore) Write(offset int, p []byte) error {
	if offset < 0 || offset+len(p) > len(s.data) {
		return fmt.Errorf("%w: offset=%d len=%d size=%d", ErrOutOfRange, offset, len(p), len(s.data))
	}
	copy(s.data[offset:], p)
	return nil
}

func (s *MemStore) Size() int { return len(s.data) }
