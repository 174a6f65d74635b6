/*
Buffer pool manager manages the fixed set of page frames which caches disk pages
on memory. Disk I/O is expensive so every access to a page goes through this pool.

the implementation of the buffer pool manager in ppcache is loosely based on
/src/backend/storage/buffer in postgres.
see great README: https://github.com/postgres/postgres/blob/d87251048a0f293ad20cc1fe26ce9f542de105e6/src/backend/storage/buffer/README#L1

----

access rule for frames: pin/unpin
- FetchPage/NewPage return a pinned frame; the pin prevents eviction.
- the caller must call UnpinPage exactly once per successful fetch after it
  completes using the page, passing whether it modified the contents.
- reader/writer exclusion on the page contents is not enforced by the pool;
  that is the frame content lock, which belongs to higher layers.

a frame is always in exactly one of three states:
- on the free list (holds no page)
- resident and pinned (in the page table only)
- resident and unpinned (in the page table and in the replacer)

victim selection prefers the free list; only when it is empty is the LRU
replacer asked. a dirty victim is written back before its buffer is reused,
so a dirty frame is never discarded without a prior write.

----

locking:
one pool-wide mutex serialises every public operation, and disk I/O happens
inside the critical section. this serialises I/O but keeps the invariants above
trivial to state. postgres splits this into mapping partition locks, per-buffer
header locks and a strategy lock
(see https://github.com/postgres/postgres/blob/d87251048a0f293ad20cc1fe26ce9f542de105e6/src/backend/storage/buffer/README#L100-L152);
a finer-grained scheme is a legitimate re-design as long as the frame states
above stay consistent between public calls.

the write-ahead log manager is accepted at construction for higher layers but
the pool itself never invokes it; whether it is present does not change the
behaviour of any operation here.
*/
package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcache/container/hash"
	"github.com/HayatoShiba/ppcache/storage/disk"
	"github.com/HayatoShiba/ppcache/storage/page"
)

// LogManager is the write-ahead log collaborator.
// the pool stores it for higher layers and never calls it; nil is a valid value.
type LogManager interface {
	// Sync makes every appended log record durable
	Sync() error
}

// Manager manages the buffer pool
type Manager struct {
	// disk manager
	dm *disk.Manager
	// write-ahead log manager. may be nil. unused by the pool, see the package comment
	lm LogManager
	// frames is the fixed pool of page frames, allocated once
	frames []*Frame
	// pageTable maps resident page id -> frame id
	pageTable *hash.ExtendibleHash[page.PageID, FrameID]
	// replacer holds the frames eligible for eviction: resident and unpinned
	replacer *LRUReplacer[FrameID]
	// freeList points to the first frame holding no page. see free_list.go
	freeList FrameID
	// mu serialises the public operations
	mu sync.Mutex
}

// NewManager initializes the buffer pool manager with poolSize frames,
// all on the free list.
// dirty frames are not flushed at teardown; callers which need durability
// must call FlushAllPages first.
func NewManager(poolSize int, dm *disk.Manager, lm LogManager) (*Manager, error) {
	if poolSize <= 0 {
		return nil, errors.Errorf("pool size must be positive: %d", poolSize)
	}
	if dm == nil {
		return nil, errors.New("disk manager must not be nil")
	}
	return &Manager{
		dm:        dm,
		lm:        lm,
		frames:    newFrames(poolSize),
		pageTable: newPageTable(),
		replacer:  NewLRUReplacer[FrameID](),
		freeList:  FirstFrameID,
	}, nil
}

// FetchPage returns the frame holding the page, pinned.
// when the page is already resident, the existing frame is pinned and returned;
// otherwise the page is read from disk into a victim frame.
// returns ErrBufferPoolFull when every frame is pinned.
// the caller must call UnpinPage exactly once after completion of using the page.
func (m *Manager) FetchPage(pageID page.PageID) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageTable.Find(pageID); ok {
		f := m.frames[fid]
		f.pinCount++
		// the frame is only in the replacer when the pin count was zero; Erase tolerates absence
		m.replacer.Erase(fid)
		return f, nil
	}

	fid, ok := m.allocateFrame()
	if !ok {
		return nil, errors.Wrapf(ErrBufferPoolFull, "cannot fetch page %d", pageID)
	}
	f := m.frames[fid]
	if err := m.evictFrame(f); err != nil {
		m.unallocateFrame(fid)
		return nil, err
	}

	m.pageTable.Insert(pageID, fid)
	if err := m.dm.ReadPage(pageID, f.data); err != nil {
		// the frame holds no readable page now; return it to the free list
		m.pageTable.Remove(pageID)
		f.reset()
		m.pushToFreeList(fid)
		return nil, errors.Wrap(err, "dm.ReadPage failed")
	}
	f.pageID = pageID
	f.dirty = false
	f.pinCount = 1
	return f, nil
}

// UnpinPage decrements the page's pin count, marking the frame dirty when the
// caller modified the contents. dirtiness is sticky: a clean unpin never clears
// another caller's dirty mark.
// when the pin count reaches zero the frame becomes eligible for eviction.
// returns ErrPageNotFound when the page is not resident and ErrPageNotPinned
// when the pin count is already zero.
func (m *Manager) UnpinPage(pageID page.PageID, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable.Find(pageID)
	if !ok {
		return errors.Wrapf(ErrPageNotFound, "cannot unpin page %d", pageID)
	}
	f := m.frames[fid]
	if dirty {
		f.dirty = true
	}
	if f.pinCount <= 0 {
		return errors.Wrapf(ErrPageNotPinned, "cannot unpin page %d", pageID)
	}
	f.pinCount--
	if f.pinCount == 0 {
		m.replacer.Insert(fid)
	}
	return nil
}

// FlushPage writes the resident page's buffer to disk.
// the dirty flag is not cleared: another caller may modify the page between the
// flush and its unpin, so the eventual eviction writes the page once more.
// returns ErrInvalidPageID for the sentinel and ErrPageNotFound when the page
// is not resident.
func (m *Manager) FlushPage(pageID page.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pageID == page.InvalidPageID {
		return errors.Wrap(ErrInvalidPageID, "cannot flush")
	}
	fid, ok := m.pageTable.Find(pageID)
	if !ok {
		return errors.Wrapf(ErrPageNotFound, "cannot flush page %d", pageID)
	}
	if err := m.dm.WritePage(pageID, m.frames[fid].data); err != nil {
		return errors.Wrap(err, "dm.WritePage failed")
	}
	return nil
}

// FlushAllPages writes every resident dirty page to disk.
// the first error is returned but the remaining pages are still written.
// dirty flags are kept, the same as FlushPage.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, f := range m.frames {
		if f.pageID == page.InvalidPageID || !f.dirty {
			continue
		}
		if err := m.dm.WritePage(f.pageID, f.data); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "dm.WritePage failed for page %d", f.pageID)
		}
	}
	return firstErr
}

// NewPage allocates a new page on disk and returns its frame, pinned, with a
// zero-filled buffer.
// returns ErrBufferPoolFull when every frame is pinned; in that case no disk
// page is allocated.
// the caller must call UnpinPage exactly once after completion of using the page.
func (m *Manager) NewPage() (*Frame, page.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.allocateFrame()
	if !ok {
		return nil, page.InvalidPageID, errors.Wrap(ErrBufferPoolFull, "cannot create page")
	}
	f := m.frames[fid]

	pageID, err := m.dm.AllocatePage()
	if err != nil {
		m.unallocateFrame(fid)
		return nil, page.InvalidPageID, errors.Wrap(err, "dm.AllocatePage failed")
	}
	if err := m.evictFrame(f); err != nil {
		m.unallocateFrame(fid)
		return nil, page.InvalidPageID, err
	}

	m.pageTable.Insert(pageID, fid)
	f.pageID = pageID
	f.ResetMemory()
	f.dirty = false
	f.pinCount = 1
	return f, pageID, nil
}

// DeletePage disassociates the page from the pool and deallocates it on disk.
// when the page is resident and still pinned, ErrPagePinned is returned and the
// page is NOT deallocated on disk: a page in use is never deallocated.
// when the page is not resident, the disk deallocation still happens.
func (m *Manager) DeletePage(pageID page.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageTable.Find(pageID); ok {
		f := m.frames[fid]
		if f.pinCount > 0 {
			return errors.Wrapf(ErrPagePinned, "cannot delete page %d", pageID)
		}
		m.pageTable.Remove(pageID)
		m.replacer.Erase(fid)
		f.reset()
		m.pushToFreeList(fid)
	}
	if err := m.dm.DeallocatePage(pageID); err != nil {
		return errors.Wrap(err, "dm.DeallocatePage failed")
	}
	return nil
}

// allocateFrame returns a frame where a page can be read into.
// at first, search the free list; when there is no free frame, ask the replacer
// for the least-recently-used unpinned frame. a frame from the replacer may
// still hold a page; the caller must evict it via evictFrame.
// the caller must hold the pool lock.
func (m *Manager) allocateFrame() (FrameID, bool) {
	if fid := m.allocateFromFreeList(); fid != InvalidFrameID {
		return fid, true
	}
	if fid, ok := m.replacer.Victim(); ok {
		return fid, true
	}
	return InvalidFrameID, false
}

// unallocateFrame undoes allocateFrame when the operation cannot proceed:
// a free frame returns to the free list, an evictable one to the replacer.
// the caller must hold the pool lock.
func (m *Manager) unallocateFrame(fid FrameID) {
	f := m.frames[fid]
	if f.pageID == page.InvalidPageID {
		m.pushToFreeList(fid)
		return
	}
	m.replacer.Insert(fid)
}

// evictFrame disassociates the frame from the page it currently holds:
// a dirty page is written back first, then the page table entry is removed.
// a frame fresh off the free list holds no page and passes through unchanged.
// the caller must hold the pool lock.
func (m *Manager) evictFrame(f *Frame) error {
	if f.pageID == page.InvalidPageID {
		return nil
	}
	if f.dirty {
		if err := m.dm.WritePage(f.pageID, f.data); err != nil {
			return errors.Wrap(err, "dm.WritePage failed")
		}
	}
	m.pageTable.Remove(f.pageID)
	return nil
}
