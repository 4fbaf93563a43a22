// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package bitset provides a compact bitmap over slot numbers, used to audit
// that every slot of a record area is accounted for exactly once.
package bitset

import "math/bits"

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but
// more memory efficient.
type Bitset struct {
	words  []uint64
	length uint64
}

// New returns a bitset covering slot numbers [0, length).
func New(length uint64) *Bitset {
	return &Bitset{
		words:  make([]uint64, (length+63)/64),
		length: length,
	}
}

func offsets(slot uint64) (word int, bit uint64) {
	return int(slot / 64), slot % 64
}

// Set marks slot. Out-of-range slots are ignored.
func (b *Bitset) Set(slot uint64) {
	if slot >= b.length {
		return
	}
	word, bit := offsets(slot)
	b.words[word] |= 1 << bit
}

// Clear unmarks slot.
func (b *Bitset) Clear(slot uint64) {
	if slot >= b.length {
		return
	}
	word, bit := offsets(slot)
	b.words[word] &^= 1 << bit
}

// IsSet reports whether slot is marked.
func (b *Bitset) IsSet(slot uint64) bool {
	if slot >= b.length {
		return false
	}
	word, bit := offsets(slot)
	return b.words[word]&(1<<bit) != 0
}

// Count returns the number of marked slots.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}
