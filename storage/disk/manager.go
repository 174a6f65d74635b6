/*
Disk manager deals with the data file under the base directory.
It provides the synchronous block device abstraction the buffer manager is built on:
allocate/deallocate page identifiers and read/write exactly one page at a time.

The data file is organized as a collection of fixed-size pages and the page id is
the index of the page within the file, so the file offset is simply id * PageSize.
Page ids are allocated sequentially and never recycled: DeallocatePage only releases
the identifier and the backing space is abandoned until a free-space map exists
(ppcache does not implement one; postgres tracks reusable space in the fsm fork,
see https://github.com/postgres/postgres/blob/master/src/backend/storage/freespace/README).

The implementation is loosely based on src/backend/storage/smgr in postgres,
collapsed to a single file because ppcache has no notion of relations or forks.
*/
package disk

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcache/storage/page"
)

// the directory the data file is located under.
// this is variable only so that tests can point it at a temporary directory.
var baseDir = "base"

// dataFileName is the name of the data file under baseDir
const dataFileName = "data"

// Manager manages the data file
type Manager struct {
	// st is the backing store: a file, or a byte slice in test
	st storage
	// nextPageID is the page id AllocatePage hands out next
	nextPageID page.PageID
	// mu serialises every operation
	mu sync.Mutex
}

// NewManager initializes the disk manager with file storage
func NewManager() (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll failed")
	}
	fd, err := os.OpenFile(filepath.Join(baseDir, dataFileName), os.O_RDWR|os.O_CREATE, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "os.OpenFile failed")
	}
	return newManager(fileStorage{fd})
}

// newManager initializes the disk manager with the given storage.
// the next page id is derived from the storage size because ids are sequential.
func newManager(st storage) (*Manager, error) {
	size, err := st.Size()
	if err != nil {
		return nil, errors.Wrap(err, "st.Size failed")
	}
	if size%page.PageSize != 0 {
		return nil, errors.Errorf("storage size %d is not page-aligned", size)
	}
	return &Manager{
		st:         st,
		nextPageID: page.PageID(size / page.PageSize),
	}, nil
}

// AllocatePage reserves an unused page identifier and extends the storage with a
// zero-filled page so the id can be read back immediately.
func (m *Manager) AllocatePage() (page.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextPageID
	if !id.IsValid() {
		return page.InvalidPageID, errors.Errorf("page id %d exceeds the maximum", id)
	}
	zero := page.NewPagePtr()
	if _, err := m.st.WriteAt(zero[:], page.CalculateFileOffset(id)); err != nil {
		return page.InvalidPageID, errors.Wrap(err, "st.WriteAt failed")
	}
	m.nextPageID++
	return id, nil
}

// DeallocatePage releases the page identifier. Subsequent reads of the page are undefined.
// identifiers are not recycled, so this only validates the id; the space is abandoned.
func (m *Manager) DeallocatePage(pageID page.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validate(pageID)
}

// ReadPage fills p with the page's bytes
func (m *Manager) ReadPage(pageID page.PageID, p page.PagePtr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(pageID); err != nil {
		return err
	}
	if _, err := m.st.ReadAt(p[:], page.CalculateFileOffset(pageID)); err != nil {
		return errors.Wrap(err, "st.ReadAt failed")
	}
	return nil
}

// WritePage writes p under the page id.
// durability is deferred to Sync: WritePage itself does not sync the storage.
func (m *Manager) WritePage(pageID page.PageID, p page.PagePtr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(pageID); err != nil {
		return err
	}
	if _, err := m.st.WriteAt(p[:], page.CalculateFileOffset(pageID)); err != nil {
		return errors.Wrap(err, "st.WriteAt failed")
	}
	return nil
}

// Sync flushes the storage
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.st.Sync(); err != nil {
		return errors.Wrap(err, "st.Sync failed")
	}
	return nil
}

// validate checks that the page id has been allocated.
// the caller must hold the mutex.
func (m *Manager) validate(pageID page.PageID) error {
	if !pageID.IsValid() || pageID >= m.nextPageID {
		return errors.Errorf("page id %d has not been allocated", pageID)
	}
	return nil
}
