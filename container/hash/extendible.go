/*
Extendible hash is an in-memory associative structure with incremental bucket splitting.

The directory is a vector of 2^globalDepth bucket references indexed by the low
globalDepth bits of the key's hash. Buckets are shared: when a bucket's local depth is
smaller than the global depth, multiple directory slots reference the same bucket.
When a bucket overflows its fixed capacity, only that bucket's entries are
redistributed, so a split never rehashes the whole table. If the split leaves the
bucket no deeper than the global depth, only the affected directory slots are
re-pointed; if it leaves the bucket deeper, the directory is then doubled (or more)
and every slot is rebuilt from the distinct buckets.

The structure is used by the buffer manager as its page table (page id -> frame id),
and is generic so it can serve as a general map as well.

Shrinking is out of scope: Remove never merges buckets and the directory never
contracts. This mirrors postgres' dynahash, which also only grows.
see https://github.com/postgres/postgres/blob/master/src/backend/utils/hash/dynahash.c

Every public operation is serialised by a single mutex.
*/
package hash

import "sync"

// HashFunc computes the 64-bit hash of a key.
// The directory distributes keys by the low bits of this value, so the function
// must spread entropy into the low bits (xxhash does; the identity function over
// small integers does too, which tests rely on).
type HashFunc[K comparable] func(K) uint64

// hashBits is the width of the hash value.
// a bucket whose local depth reached this width cannot be split further
// because no remaining bit can separate its entries.
const hashBits = 64

// bucket holds up to bucketSize entries which share the low localDepth bits of their hash.
// id is that shared bit pattern.
type bucket[K comparable, V any] struct {
	items      map[K]V
	id         uint64
	localDepth int
}

func newBucket[K comparable, V any](id uint64, localDepth int) *bucket[K, V] {
	return &bucket[K, V]{
		items:      make(map[K]V),
		id:         id,
		localDepth: localDepth,
	}
}

// ExtendibleHash is the extendible hash directory.
type ExtendibleHash[K comparable, V any] struct {
	mu sync.Mutex
	// hash computes the key's hash. see HashFunc
	hash HashFunc[K]
	// bucketSize is the maximum number of entries per bucket before split
	bucketSize int
	// bucketCount is the number of distinct buckets reachable from the directory
	bucketCount int
	// pairCount is the number of stored entries. splits do not change it
	pairCount int
	// globalDepth is the number of hash bits used to index the directory
	globalDepth int
	// dir is the directory of length 2^globalDepth.
	// slots may be nil after a multi-level split cleared them; Find treats nil as not-found
	// and Insert creates a fresh bucket there
	dir []*bucket[K, V]
}

// New initializes the extendible hash with a single empty bucket of depth 0.
// bucketSize must be >= 1: a zero capacity would make every insert overflow a
// bucket that no split can empty.
func New[K comparable, V any](bucketSize int, hash HashFunc[K]) *ExtendibleHash[K, V] {
	return &ExtendibleHash[K, V]{
		hash:        hash,
		bucketSize:  bucketSize,
		bucketCount: 1,
		globalDepth: 0,
		dir:         []*bucket[K, V]{newBucket[K, V](0, 0)},
	}
}

// dirIndex computes the directory slot for the key: the low globalDepth bits of its hash.
// the caller must hold the mutex.
func (h *ExtendibleHash[K, V]) dirIndex(key K) uint64 {
	return h.hash(key) & ((1 << uint(h.globalDepth)) - 1)
}

// Find returns the value stored under the key.
func (h *ExtendibleHash[K, V]) Find(key K) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.dir[h.dirIndex(key)]
	if b == nil {
		var zero V
		return zero, false
	}
	v, ok := b.items[key]
	return v, ok
}

// Remove erases the entry for the key and reports whether it was present.
// buckets are not merged and the directory does not shrink.
func (h *ExtendibleHash[K, V]) Remove(key K) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.dir[h.dirIndex(key)]
	if b == nil {
		return false
	}
	if _, ok := b.items[key]; !ok {
		return false
	}
	delete(b.items, key)
	h.pairCount--
	return true
}

// Insert stores the value under the key, overwriting any previous value.
// when the target bucket overflows, the bucket is split and the directory is
// expanded if the new local depth exceeds the global depth.
func (h *ExtendibleHash[K, V]) Insert(key K, value V) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := h.dirIndex(key)
	if h.dir[idx] == nil {
		// the slot was cleared by an earlier multi-level split
		h.dir[idx] = newBucket[K, V](idx, h.globalDepth)
		h.bucketCount++
	}
	b := h.dir[idx]

	if _, ok := b.items[key]; ok {
		b.items[key] = value
		return
	}
	b.items[key] = value
	h.pairCount++
	if len(b.items) <= h.bucketSize {
		return
	}

	oldID := b.id
	oldDepth := b.localDepth
	s := h.split(b)
	if s == nil {
		// no hash bit separates the entries. the bucket keeps its depth and id and
		// temporarily holds more than bucketSize entries; every entry stays locatable
		b.id = oldID
		b.localDepth = oldDepth
		return
	}

	if b.localDepth > h.globalDepth {
		h.expandDirectory(b, s)
		return
	}

	// the directory is deep enough already.
	// clear every slot which referenced the bucket under its old depth,
	// then re-point the slots of the two halves under the new, larger stride.
	for i := oldID; i < uint64(len(h.dir)); i += uint64(1) << uint(oldDepth) {
		h.dir[i] = nil
	}
	step := uint64(1) << uint(b.localDepth)
	for i := b.id; i < uint64(len(h.dir)); i += step {
		h.dir[i] = b
	}
	for i := s.id; i < uint64(len(h.dir)); i += step {
		h.dir[i] = s
	}
}

// split partitions the overflowing bucket by the next hash bit into b and a new sibling.
// both depths are incremented until at least one entry lands on each side: when all
// entries agree on the inspected bit the partition is trivial and a deeper bit must be
// tried. A key whose hash has the new bit clear always stays in b.
// returns nil when the entries share all hashBits bits and cannot be separated.
// the sibling's id is the low localDepth bits of its entries; b's id is unchanged
// unless every entry moved, in which case the sides are swapped so b keeps the entries.
func (h *ExtendibleHash[K, V]) split(b *bucket[K, V]) *bucket[K, V] {
	s := newBucket[K, V](0, b.localDepth)
	for len(s.items) == 0 {
		if b.localDepth >= hashBits {
			return nil
		}
		b.localDepth++
		s.localDepth++
		for k, v := range b.items {
			if h.hash(k)&(1<<uint(b.localDepth-1)) != 0 {
				s.items[k] = v
				s.id = h.hash(k) & ((1 << uint(b.localDepth)) - 1)
				delete(b.items, k)
			}
		}
		if len(b.items) == 0 {
			b.items, s.items = s.items, b.items
			b.id = s.id
		}
	}
	h.bucketCount++
	return s
}

// expandDirectory grows the directory to 2^localDepth slots and rebuilds the references:
// every distinct bucket is placed at slot bucket.id and at every further slot at stride
// 2^bucket.localDepth. Slots covered by no bucket are cleared; a later insert into such
// a slot creates a fresh bucket.
// the caller must hold the mutex; b and s are the two halves of the split which triggered
// the expansion (s is not reachable from the old directory yet).
func (h *ExtendibleHash[K, V]) expandDirectory(b, s *bucket[K, V]) {
	factor := 1 << uint(b.localDepth-h.globalDepth)
	h.globalDepth = b.localDepth
	newDir := make([]*bucket[K, V], len(h.dir)*factor)

	seen := map[*bucket[K, V]]struct{}{s: {}}
	buckets := []*bucket[K, V]{s}
	for _, x := range h.dir {
		if x == nil {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		buckets = append(buckets, x)
	}
	for _, x := range buckets {
		step := uint64(1) << uint(x.localDepth)
		for i := x.id; i < uint64(len(newDir)); i += step {
			newDir[i] = x
		}
	}
	h.dir = newDir
}

// GlobalDepth returns the number of hash bits used to index the directory.
func (h *ExtendibleHash[K, V]) GlobalDepth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.globalDepth
}

// LocalDepth returns the local depth of the bucket referenced by the directory slot,
// or -1 when the slot is out of range or empty.
func (h *ExtendibleHash[K, V]) LocalDepth(slot int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if slot < 0 || slot >= len(h.dir) || h.dir[slot] == nil {
		return -1
	}
	return h.dir[slot].localDepth
}

// NumBuckets returns the number of distinct buckets reachable from the directory.
func (h *ExtendibleHash[K, V]) NumBuckets() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bucketCount
}

// Len returns the number of stored entries.
func (h *ExtendibleHash[K, V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pairCount
}
