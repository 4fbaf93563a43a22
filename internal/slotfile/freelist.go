// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"errors"
	"fmt"
)

// readNext returns the next-pointer stored in the first IntSize bytes of a slot.
func (f *File) readNext(slot uint64) (uint64, error) {
	var buf [IntSize]byte
	if _, err := f.f.ReadAt(buf[:], f.slotOffset(slot)); err != nil {
		return 0, fmt.Errorf("f.ReadAt: %w", err)
	}
	return getInt(buf[:]), nil
}

func (f *File) writeNext(slot, next uint64) error {
	var buf [IntSize]byte
	putInt(buf[:], next)
	if _, err := f.f.WriteAt(buf[:], f.slotOffset(slot)); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}
	return nil
}

// initFreeList links slots [from, numSlots) into a run where each slot
// points at its successor and the last holds the sentinel.
func (f *File) initFreeList(from uint64) error {
	n := f.numSlots()
	for rn := from; rn < n; rn++ {
		next := rn + 1
		if next == n {
			next = noMoreRecords
		}
		if err := f.writeNext(rn, next); err != nil {
			return err
		}
	}
	return nil
}

// allocate returns n slots unlinked from the free list, growing the record
// area as needed. The returned slots are still linked in order with the
// sentinel on the last, ready to carry one record chain.
func (f *File) allocate(n int) ([]uint64, error) {
	for {
		slots, err := f.tryAllocate(n)
		if err == nil {
			return slots, nil
		}
		if !errors.Is(err, errOutOfSpace) {
			return nil, err
		}
		f.log.Debugw("free list exhausted",
			"want", n, "slots", f.numSlots())
		if err := f.grow(); err != nil {
			return nil, err
		}
	}
}

// tryAllocate walks the free chain collecting n slots. It mutates nothing
// until it knows the walk succeeds, so an errOutOfSpace leaves the free list
// intact for the retry after grow.
func (f *File) tryAllocate(n int) ([]uint64, error) {
	slots := make([]uint64, 0, n)
	cur := f.freeHead
	for len(slots) < n {
		if cur == noMoreRecords {
			return nil, errOutOfSpace
		}
		if cur >= f.numSlots() {
			return nil, fmt.Errorf("%w: free slot %d out of range (%d slots)", ErrFormat, cur, f.numSlots())
		}
		slots = append(slots, cur)
		next, err := f.readNext(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	// cur is now the slot that followed the last consumed one
	if err := f.writeNext(slots[len(slots)-1], noMoreRecords); err != nil {
		return nil, err
	}
	f.freeHead = cur
	if err := f.writeHeader(); err != nil {
		return nil, err
	}
	return slots, nil
}

// release prepends the whole chain at head to the free list in O(1) link
// writes: the chain's tail is pointed at the old free head. The chain's
// internal links are left untouched -- they still describe a valid, now
// free, sequence.
func (f *File) release(head uint64) error {
	tail, err := f.chainTail(head)
	if err != nil {
		return err
	}
	if err := f.writeNext(tail, f.freeHead); err != nil {
		return err
	}
	f.freeHead = head
	return f.writeHeader()
}

// chainTail walks to the last slot of the chain at head.
func (f *File) chainTail(head uint64) (uint64, error) {
	it := f.chain(head)
	var tail uint64
	found := false
	for slot, ok := it.Next(); ok; slot, ok = it.Next() {
		tail = slot
		found = true
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: empty chain at slot %d", ErrFormat, head)
	}
	return tail, nil
}

// grow doubles the record area, shifting the index out of the way and
// linking the new slots onto the end of any existing free chain. Existing
// slot contents and chain links are preserved unchanged. An I/O failure
// (e.g. disk full) propagates instead of retrying.
func (f *File) grow() error {
	oldSlots := f.numSlots()
	newSlots := 2 * oldSlots
	newOffset := RecordsOffset + newSlots*f.slotSize

	f.log.Debugw("growing record area",
		"slots", oldSlots, "newSlots", newSlots, "indexOffset", newOffset)

	if err := f.f.Truncate(int64(newOffset)); err != nil {
		return fmt.Errorf("f.Truncate: %w", err)
	}
	f.indexOffset = newOffset
	if err := f.initFreeList(oldSlots); err != nil {
		return err
	}

	if f.freeHead == noMoreRecords {
		f.freeHead = oldSlots
	} else {
		tail, err := f.chainTail(f.freeHead)
		if err != nil {
			return err
		}
		if err := f.writeNext(tail, oldSlots); err != nil {
			return err
		}
	}

	// the index must land at its new offset before the header points there
	if err := f.flushIndex(); err != nil {
		return err
	}
	return f.writeHeader()
}

// FreeSlots counts the free list by walking it. Diagnostic; O(free slots).
func (f *File) FreeSlots() (int, error) {
	it := f.chain(f.freeHead)
	count := 0
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		count++
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return count, nil
}
