/*
This file defines the storage interface and its implementations.
We don't want to execute disk I/O in test, so it's better to use a byte slice instead of
an actual file in test. For this reason, the storage interface is defined.
The possible operations with storage are read/write at a page-aligned offset, sync and get size.
The implementations are:
- fileStorage: wrapper of os.File
- bufferStorage: byte slice which grows page by page. this is intended to be used in test.

note:
- bytes.Buffer doesn't implement io.WriterAt because it is designed for sequential access
- bytes.Reader doesn't implement io.Writer
- so it is better to define bufferStorage by ourselves.
*/
package disk

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// storage is the backing store of the data file.
type storage interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
}

// fileStorage is file storage
type fileStorage struct {
	*os.File
}

// Size returns the storage's size
func (fs fileStorage) Size() (int64, error) {
	stat, err := fs.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Stat failed")
	}
	return stat.Size(), nil
}

// bufferStorage is on-memory storage
type bufferStorage struct {
	buf []byte
}

// newBufferStorage initializes empty bufferStorage.
// the buffer grows when a page is written at its end, the way a file does.
func newBufferStorage() *bufferStorage {
	return &bufferStorage{}
}

// Size returns the buffer size
func (bs *bufferStorage) Size() (int64, error) {
	return int64(len(bs.buf)), nil
}

// Sync doesn't do anything
// on-memory byte slice doesn't need sync
func (bs *bufferStorage) Sync() error {
	return nil
}

// ReadAt reads len(p) bytes at the offset
func (bs *bufferStorage) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(bs.buf)) {
		return 0, errors.Errorf("offset %d is out of range: size %d", off, len(bs.buf))
	}
	n := copy(p, bs.buf[off:])
	if n != len(p) {
		return n, errors.Errorf("cannot fully read: read %d, want %d", n, len(p))
	}
	return n, nil
}

// WriteAt writes p at the offset, extending the buffer when the write ends beyond it
func (bs *bufferStorage) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(bs.buf)) {
		return 0, errors.Errorf("offset %d is out of range: size %d", off, len(bs.buf))
	}
	if end := off + int64(len(p)); end > int64(len(bs.buf)) {
		bs.buf = append(bs.buf, make([]byte, end-int64(len(bs.buf)))...)
	}
	n := copy(bs.buf[off:], p)
	return n, nil
}

// compile-time check: both implementations satisfy storage
var (
	_ storage = fileStorage{}
	_ storage = (*bufferStorage)(nil)
)
