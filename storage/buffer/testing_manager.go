package buffer

import (
	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcache/storage/disk"
)

// testingPoolSize is the pool size the testing constructors use
const testingPoolSize = 10

// TestingNewManager initializes the buffer pool manager backed by on-memory
// disk storage, with testingPoolSize frames and no log manager.
func TestingNewManager() (*Manager, error) {
	return TestingNewManagerWithPoolSize(testingPoolSize)
}

// TestingNewManagerWithPoolSize initializes the buffer pool manager backed by
// on-memory disk storage with the given number of frames.
func TestingNewManagerWithPoolSize(poolSize int) (*Manager, error) {
	dm, err := disk.TestingNewBufferManager()
	if err != nil {
		return nil, errors.Wrap(err, "disk.TestingNewBufferManager failed")
	}
	return NewManager(poolSize, dm, nil)
}
