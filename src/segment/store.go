package segment

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/rajivbishwokarma/tensil/src/cerr"
)

// Store is the byte-backed home for one segment's serialized LIR stream. It
// is written sequentially during build, then read any number of times after
// Close during the overlay, and released exactly once.
type Store interface {
	io.Writer
	// Reader returns a fresh reader positioned at the start of the store's
	// bytes. Valid only after Close.
	Reader() (io.ReadCloser, error)
	// Size reports the store's byte length. Valid only after Close.
	Size() (int64, error)
	// Close seals the store against further writes.
	Close() error
	// Release frees any underlying resource (temp file). Safe to call after
	// Close, and safe to call more than once.
	Release() error
}

// memStore is an in-memory Store, useful for tests and small compilations
// that do not want filesystem traffic.
type memStore struct {
	buf    bytes.Buffer
	closed bool
}

// NewMemStore returns a Store backed by an in-process buffer.
func NewMemStore() Store {
	return &memStore{}
}

func (s *memStore) Write(p []byte) (int, error) {
	if s.closed {
		return 0, cerr.Invariant("write to closed segment store")
	}
	return s.buf.Write(p)
}

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

func (s *memStore) Release() error { return nil }

func (s *memStore) Reader() (io.ReadCloser, error) {
	if !s.closed {
		return nil, cerr.Invariant("read from segment store before Close")
	}
	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

func (s *memStore) Size() (int64, error) {
	if !s.closed {
		return 0, cerr.Invariant("size of segment store before Close")
	}
	return int64(s.buf.Len()), nil
}

// fileStore is a temp-file-backed Store, the default: it keeps large
// compilations off the heap the way the teacher scopes simulator artifacts
// to os.CreateTemp files released on every exit path.
type fileStore struct {
	f      *os.File
	closed bool
}

// NewFileStore returns a Store backed by a new temp file in dir (os.TempDir
// if dir is empty).
func NewFileStore(dir string) (Store, error) {
	f, err := os.CreateTemp(dir, "tensil-segment-*.bin")
	if err != nil {
		return nil, cerr.IO("create segment temp file", err)
	}
	return &fileStore{f: f}, nil
}

func (s *fileStore) Write(p []byte) (int, error) {
	if s.closed {
		return 0, cerr.Invariant("write to closed segment store")
	}
	n, err := s.f.Write(p)
	if err != nil {
		return n, cerr.IO("write segment temp file", err)
	}
	return n, nil
}

func (s *fileStore) Close() error {
	s.closed = true
	return nil
}

func (s *fileStore) Reader() (io.ReadCloser, error) {
	if !s.closed {
		return nil, cerr.Invariant("read from segment store before Close")
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nil, cerr.IO("seek segment temp file", err)
	}
	return &fileReader{f: s.f}, nil
}

func (s *fileStore) Size() (int64, error) {
	if !s.closed {
		return 0, cerr.Invariant("size of segment store before Close")
	}
	info, err := s.f.Stat()
	if err != nil {
		return 0, cerr.IO("stat segment temp file", err)
	}
	return info.Size(), nil
}

func (s *fileStore) Release() error {
	name := s.f.Name()
	if err := s.f.Close(); err != nil && !os.IsNotExist(err) && !errors.Is(err, os.ErrClosed) {
		return cerr.IO("close segment temp file", err)
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return cerr.IO("remove segment temp file", err)
	}
	return nil
}

// fileReader wraps *os.File so Reader() can hand out a ReadCloser without
// letting the caller close the store's only file descriptor underneath it.
type fileReader struct {
	f *os.File
}

func (r *fileReader) Read(p []byte) (int, error) { return r.f.Read(p) }
func (r *fileReader) Close() error                { return nil }
