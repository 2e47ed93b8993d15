// Package bitmap is a fixed-capacity bitset over non-negative integer ids.
// The filter package uses it for product-id membership when every id in a
// selection is integral, which is the common case for AdventureWorks keys.
package bitmap

import "math/bits"

// Bitmap is a bitset backed by 64-bit words.
type Bitmap struct {
	data []uint64
}

// New allocates a bitmap covering ids in [0, maxID]. A negative maxID gives
// an empty set.
func New(maxID int) *Bitmap {
	if maxID < 0 {
		return &Bitmap{}
	}
	return &Bitmap{data: make([]uint64, maxID/64+1)}
}

// Of builds a bitmap sized to hold exactly ids. Negative ids are dropped.
func Of(ids ...int) *Bitmap {
	maxID := -1
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	b := New(maxID)
	for _, id := range ids {
		b.Add(id)
	}
	return b
}

// Add sets id. Negative or out-of-range ids are ignored.
func (b *Bitmap) Add(id int) {
	if id < 0 || id/64 >= len(b.data) {
		return
	}
	b.data[id/64] |= 1 << uint(id%64)
}

// Has reports whether id is set.
func (b *Bitmap) Has(id int) bool {
	if id < 0 || id/64 >= len(b.data) {
		return false
	}
	return b.data[id/64]&(1<<uint(id%64)) != 0
}

// Len counts the set ids.
func (b *Bitmap) Len() int {
	n := 0
	for _, w := range b.data {
		n += bits.OnesCount64(w)
	}
	return n
}
