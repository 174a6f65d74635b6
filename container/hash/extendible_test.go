package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// identity hashes small integer keys to themselves so tests can steer
// keys into specific buckets
func identity(k int) uint64 {
	return uint64(k)
}

func TestInsertFind(t *testing.T) {
	h := New[int, string](2, identity)

	_, ok := h.Find(1)
	assert.False(t, ok)

	h.Insert(1, "one")
	h.Insert(2, "two")
	v, ok := h.Find(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)
	v, ok = h.Find(2)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, 2, h.Len())
}

func TestInsert_Overwrite(t *testing.T) {
	h := New[int, string](2, identity)

	h.Insert(1, "one")
	h.Insert(1, "uno")
	v, ok := h.Find(1)
	assert.True(t, ok)
	assert.Equal(t, "uno", v)
	// overwrite must not grow the pair count
	assert.Equal(t, 1, h.Len())
}

func TestRemove(t *testing.T) {
	h := New[int, string](2, identity)

	h.Insert(1, "one")
	assert.True(t, h.Remove(1))
	_, ok := h.Find(1)
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	// removing an absent key reports false
	assert.False(t, h.Remove(1))
	assert.False(t, h.Remove(42))
}

func TestInsert_Split(t *testing.T) {
	// keys hash to 0..4 with bucket capacity 2, which forces two splits:
	// the first doubles the directory, the second doubles it again
	h := New[int, int](2, identity)
	for k := 0; k <= 4; k++ {
		h.Insert(k, k*10)
	}

	assert.GreaterOrEqual(t, h.GlobalDepth(), 2)
	assert.GreaterOrEqual(t, h.NumBuckets(), 3)
	for k := 0; k <= 4; k++ {
		v, ok := h.Find(k)
		assert.True(t, ok)
		assert.Equal(t, k*10, v)
	}
	assert.Equal(t, 5, h.Len())
}

func TestInsert_ManyKeys(t *testing.T) {
	// every inserted entry stays locatable with its latest value across many splits
	h := New[int, int](2, identity)
	expected := make(map[int]int)
	for k := 0; k < 64; k++ {
		h.Insert(k, k)
		expected[k] = k
	}
	for k := 0; k < 16; k++ {
		h.Insert(k, k+100)
		expected[k] = k + 100
	}
	for k, want := range expected {
		v, ok := h.Find(k)
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 64, h.Len())

	// after removal, Find reports not-found
	for k := 0; k < 64; k += 2 {
		assert.True(t, h.Remove(k))
	}
	for k := 0; k < 64; k++ {
		_, ok := h.Find(k)
		assert.Equal(t, k%2 == 1, ok)
	}
	assert.Equal(t, 32, h.Len())
}

func TestInsert_MultiLevelSplit(t *testing.T) {
	// 0 and 8 agree on the low three hash bits, so separating them must deepen
	// the bucket by four levels in one split and expand the directory to match
	h := New[int, int](1, identity)
	h.Insert(0, 0)
	h.Insert(8, 8)

	assert.Equal(t, 4, h.GlobalDepth())
	v, ok := h.Find(0)
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	v, ok = h.Find(8)
	assert.True(t, ok)
	assert.Equal(t, 8, v)

	// the expansion cleared the slots between the two buckets; an insert into a
	// cleared slot creates a fresh bucket there
	before := h.NumBuckets()
	h.Insert(3, 3)
	assert.Equal(t, before+1, h.NumBuckets())
	v, ok = h.Find(3)
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestInsert_UnsplittableBucket(t *testing.T) {
	// every key hashes identically, so no bit can separate the entries.
	// the split must be refused and the bucket overflows, but every entry
	// stays locatable and the structure is unchanged otherwise.
	collide := func(k int) uint64 { return 0 }
	h := New[int, int](2, collide)
	for k := 0; k < 5; k++ {
		h.Insert(k, k)
	}

	assert.Equal(t, 0, h.GlobalDepth())
	assert.Equal(t, 1, h.NumBuckets())
	assert.Equal(t, 5, h.Len())
	for k := 0; k < 5; k++ {
		v, ok := h.Find(k)
		assert.True(t, ok)
		assert.Equal(t, k, v)
	}
}

func TestDepths(t *testing.T) {
	h := New[int, int](2, identity)
	assert.Equal(t, 0, h.GlobalDepth())
	assert.Equal(t, 0, h.LocalDepth(0))
	assert.Equal(t, 1, h.NumBuckets())

	// out-of-range slots report -1
	assert.Equal(t, -1, h.LocalDepth(-1))
	assert.Equal(t, -1, h.LocalDepth(1))

	for k := 0; k <= 4; k++ {
		h.Insert(k, k)
	}
	// no bucket is deeper than the directory
	for i := 0; i < 1<<h.GlobalDepth(); i++ {
		if d := h.LocalDepth(i); d != -1 {
			assert.LessOrEqual(t, d, h.GlobalDepth())
		}
	}
}

func TestDirectoryConsistency(t *testing.T) {
	// for any key, the slot at hash(k) mod 2^G must point to a bucket whose id
	// equals hash(k) mod 2^L, and all entries of that bucket share those bits
	h := New[int, int](2, identity)
	for k := 0; k < 32; k++ {
		h.Insert(k, k)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.dir {
		if b == nil {
			continue
		}
		assert.Equal(t, b.id, uint64(i)&((1<<uint(b.localDepth))-1))
		for k := range b.items {
			assert.Equal(t, b.id, h.hash(k)&((1<<uint(b.localDepth))-1))
		}
	}
}

func TestNumBuckets_ReachableCount(t *testing.T) {
	// bucketCount must equal the number of distinct buckets reachable from the directory
	h := New[int, int](2, identity)
	for k := 0; k < 32; k++ {
		h.Insert(k, k)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[*bucket[int, int]]struct{})
	for _, b := range h.dir {
		if b != nil {
			seen[b] = struct{}{}
		}
	}
	assert.Equal(t, h.bucketCount, len(seen))
}
