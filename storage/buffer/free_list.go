/*
the implementation of free list

The free list is threaded through the frames themselves: each frame stores the id of
the next free frame, so the list costs no allocation and push/pop are two assignments.
Initially every frame is on the list; a frame returns to it when DeletePage
disassociates the frame from its page.

A frame on the free list holds no page, so it never appears in the page table or
in the replacer.
*/
package buffer

const (
	// this indicates the end of the free list
	freeListInvalidID FrameID = -1
)

// allocateFromFreeList pops the first free frame off the list.
// if there is no free frame, just return InvalidFrameID.
// the caller must hold the pool lock.
func (m *Manager) allocateFromFreeList() FrameID {
	if m.freeList == freeListInvalidID {
		return InvalidFrameID
	}
	fid := m.freeList
	m.freeList = m.frames[fid].nextFreeID
	m.frames[fid].nextFreeID = freeListInvalidID
	return fid
}

// pushToFreeList pushes the frame onto the head of the list.
// the caller must hold the pool lock and the frame must hold no page.
func (m *Manager) pushToFreeList(fid FrameID) {
	m.frames[fid].nextFreeID = m.freeList
	m.freeList = fid
}
