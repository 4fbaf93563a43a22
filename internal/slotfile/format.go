// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

// IntSize is the width in bytes of every integer in the file format: header
// fields, slot next-pointers, and index entry fields. It is fixed at build
// time; one of 2, 4 or 8. Files written at one width cannot be opened by an
// engine built at another -- the magic number encodes the width.
const IntSize = 4

const (
	// HeaderSize is the fixed preamble: magic, slot size, index offset,
	// free-list head.
	HeaderSize = 4 * IntSize

	// RecordsOffset is where the slot array begins.
	RecordsOffset = HeaderSize

	// MinSlotSize leaves at least as many payload bytes per slot as the
	// next-pointer occupies.
	MinSlotSize = 2 * IntSize

	// DefaultSlotSize is used when Create is passed a non-positive slot size.
	DefaultSlotSize = 512
)

const (
	magic16 = 0xd8fd
	magic32 = 0xd8fd2372
	magic64 = 0xd8fd23720dc4b9f4
)

// magicNumbers maps integer width to the format magic, so that files of
// different widths are mutually unreadable instead of silently misread.
var magicNumbers = map[int]uint64{
	2: magic16,
	4: magic32,
	8: magic64,
}

var fileMagic = magicNumbers[IntSize]

// noMoreRecords terminates record chains and the free list: all IntSize*8
// bits set.
const noMoreRecords uint64 = 1<<(8*IntSize) - 1

// putInt serializes v big-endian into the first IntSize bytes of b.
func putInt(b []byte, v uint64) {
	_ = b[IntSize-1]
	for i := IntSize - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// getInt deserializes a big-endian integer from the first IntSize bytes of b.
func getInt(b []byte) uint64 {
	_ = b[IntSize-1]
	var v uint64
	for i := 0; i < IntSize; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
