/*
Frame is an in-memory slot which may hold one page's bytes.

The pool allocates every frame once at construction and only ever reuses them,
so a frame's buffer address is stable for the lifetime of the pool; eviction
changes the contents and the identity metadata, never the buffer itself.

Metadata for the cache eviction policy:

1. page id
- the id of the page currently held, or page.InvalidPageID when the frame is free.

2. pin count
- the number of callers currently using the frame.
- a pinned frame is never chosen as a victim.
- the flow is: FetchPage/NewPage pins the frame -> caller uses the page
- -> caller unpins via UnpinPage after completion.
- IMPORTANT: the caller is responsible for the matching UnpinPage call

3. dirty flag
- set when the in-memory contents differ from the page on disk.
- a dirty frame must be written back before its buffer is reused.
- within one residency the flag only moves from clean to dirty; it is cleared
  when the frame becomes associated with a different page.

The content lock is reserved for higher layers (access methods serialise page
reads/writes with it, the way postgres uses the buffer content lock). The pool
itself never takes it.
see https://github.com/postgres/postgres/blob/d87251048a0f293ad20cc1fe26ce9f542de105e6/src/backend/storage/buffer/README#L100-L152
*/
package buffer

import (
	"sync"

	"github.com/HayatoShiba/ppcache/storage/page"
)

// FrameID is the index of a frame within the pool
type FrameID int32

const (
	// first frame id in the pool
	FirstFrameID FrameID = 0
	// invalid frame id
	InvalidFrameID FrameID = -1
)

// Frame is one slot of the buffer pool
type Frame struct {
	// data is the page buffer. allocated once, reused across residencies
	data page.PagePtr
	// pageID is the page currently held, or page.InvalidPageID
	pageID page.PageID
	// pinCount is the number of callers using the frame
	pinCount int
	// dirty reports whether the buffer differs from the page on disk
	dirty bool
	// nextFreeID links the frame into the free list. see free_list.go
	nextFreeID FrameID
	// contentLock protects the page contents for higher layers; the pool never takes it
	contentLock sync.RWMutex
}

// newFrames initializes the pool's frames, all linked into the free list.
// this function is expected to be called only in NewManager and test
func newFrames(poolSize int) []*Frame {
	frames := make([]*Frame, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = &Frame{
			data:       page.NewPagePtr(),
			pageID:     page.InvalidPageID,
			nextFreeID: FrameID(i + 1),
		}
	}
	frames[poolSize-1].nextFreeID = freeListInvalidID
	return frames
}

// Data returns the page buffer.
// the returned pointer is loaned to the caller while the frame is pinned;
// reader/writer exclusion is the caller's business via the content lock.
func (f *Frame) Data() page.PagePtr {
	return f.data
}

// PageID returns the id of the page the frame holds, or page.InvalidPageID
func (f *Frame) PageID() page.PageID {
	return f.pageID
}

// PinCount returns the current pin count
func (f *Frame) PinCount() int {
	return f.pinCount
}

// IsDirty reports whether the frame is dirty
func (f *Frame) IsDirty() bool {
	return f.dirty
}

// ResetMemory zeroes the page buffer
func (f *Frame) ResetMemory() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// reset disassociates the frame from its page: zeroed buffer, sentinel id, clean, unpinned
func (f *Frame) reset() {
	f.pageID = page.InvalidPageID
	f.pinCount = 0
	f.dirty = false
	f.ResetMemory()
}

// Lock acquires the exclusive content lock
func (f *Frame) Lock() {
	f.contentLock.Lock()
}

// Unlock releases the exclusive content lock
func (f *Frame) Unlock() {
	f.contentLock.Unlock()
}

// RLock acquires the shared content lock
func (f *Frame) RLock() {
	f.contentLock.RLock()
}

// RUnlock releases the shared content lock
func (f *Frame) RUnlock() {
	f.contentLock.RUnlock()
}
