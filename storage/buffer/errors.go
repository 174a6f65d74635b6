package buffer

import "github.com/pkg/errors"

// expected pool conditions, returned wrapped; check with errors.Is
var (
	// ErrBufferPoolFull is returned by FetchPage/NewPage when every frame is pinned.
	// the caller can retry after unpinning a page.
	ErrBufferPoolFull = errors.New("all frames are pinned")
	// ErrPageNotFound is returned when the page is not resident in the pool
	ErrPageNotFound = errors.New("page is not in the buffer pool")
	// ErrPageNotPinned is returned by UnpinPage when the pin count is already zero,
	// which indicates a caller bug. the pin count is not modified.
	ErrPageNotPinned = errors.New("page pin count is already zero")
	// ErrPagePinned is returned by DeletePage when a caller still holds the page.
	// the page is not deallocated on disk in this case.
	ErrPagePinned = errors.New("page is still pinned")
	// ErrInvalidPageID is returned when the page id sentinel is passed
	ErrInvalidPageID = errors.New("invalid page id")
)
