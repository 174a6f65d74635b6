/*
This is the page table: the mapping from page id to the frame the page resides in.
The pool consults it on every operation, so lookup must be cheap.

In postgres, the buffer mapping table is a dynahash instance partitioned for
concurrency (see
https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/backend/storage/buffer/buf_table.c#L3).
ppcache uses its extendible hash directory, unpartitioned, because the pool
serialises every operation under one mutex anyway.

A frame appears in the table under at most one page id, and a frame on the
free list does not appear at all.
*/
package buffer

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/HayatoShiba/ppcache/container/hash"
	"github.com/HayatoShiba/ppcache/storage/page"
)

// pageTableBucketSize is the maximum number of entries per page-table bucket before split
const pageTableBucketSize = 50

// hashPageID hashes the page id for the page table directory.
// page ids are small sequential integers, so they are run through xxhash to
// spread entropy into the low bits the directory indexes by.
func hashPageID(pageID page.PageID) uint64 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(pageID))
	return xxhash.Sum64(b[:])
}

// newPageTable initializes an empty page table
func newPageTable() *hash.ExtendibleHash[page.PageID, FrameID] {
	return hash.New[page.PageID, FrameID](pageTableBucketSize, hashPageID)
}
