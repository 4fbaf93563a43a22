// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"fmt"
)

// chainIter walks the slot numbers of one chain, following next-pointers
// until the sentinel. Finite and not restartable: a fresh iterator re-walks
// from the head. A walk longer than the record area means a corrupted
// (cyclic) file and fails with ErrFormat rather than spinning.
type chainIter struct {
	f     *File
	cur   uint64
	steps uint64
	err   error
}

func (f *File) chain(head uint64) *chainIter {
	return &chainIter{f: f, cur: head}
}

// Next returns the next slot number in the chain, or false at the end of the
// chain or on error (check Err).
func (it *chainIter) Next() (uint64, bool) {
	if it.err != nil || it.cur == noMoreRecords {
		return 0, false
	}
	n := it.f.numSlots()
	if it.steps >= n {
		it.err = fmt.Errorf("%w: record chain longer than %d slots", ErrFormat, n)
		return 0, false
	}
	if it.cur >= n {
		it.err = fmt.Errorf("%w: chain slot %d out of range (%d slots)", ErrFormat, it.cur, n)
		return 0, false
	}

	slot := it.cur
	next, err := it.f.readNext(slot)
	if err != nil {
		it.err = err
		return 0, false
	}
	it.cur = next
	it.steps++
	return slot, true
}

func (it *chainIter) Err() error {
	return it.err
}

// chunkIter yields each slot's payload region in chain order. The returned
// slice is reused between calls; callers keeping a chunk must copy it.
type chunkIter struct {
	slots *chainIter
	buf   []byte
}

func (f *File) chunks(head uint64) *chunkIter {
	return &chunkIter{slots: f.chain(head)}
}

func (it *chunkIter) Next() ([]byte, bool) {
	slot, ok := it.slots.Next()
	if !ok {
		return nil, false
	}
	f := it.slots.f
	if it.buf == nil {
		it.buf = make([]byte, f.usable())
	}
	if _, err := f.f.ReadAt(it.buf, f.slotOffset(slot)+IntSize); err != nil {
		it.slots.err = fmt.Errorf("f.ReadAt: %w", err)
		return nil, false
	}
	return it.buf, true
}

func (it *chunkIter) Err() error {
	return it.slots.err
}

// writeChain writes data left to right across the payload regions of slots,
// which must already be linked in order with the sentinel on the last. A
// payload shorter than the total capacity leaves the tail of the final slot
// as garbage; the true length lives in the index, not the slots.
func (f *File) writeChain(slots []uint64, data []byte) error {
	usable := f.usable()
	for i, slot := range slots {
		start := i * usable
		if start >= len(data) {
			break
		}
		end := start + usable
		if end > len(data) {
			end = len(data)
		}
		if _, err := f.f.WriteAt(data[start:end], f.slotOffset(slot)+IntSize); err != nil {
			return fmt.Errorf("f.WriteAt: %w", err)
		}
	}
	return nil
}

// readPayload reconstructs a record by concatenating its chunks, truncated
// to the length declared in the index entry.
func (f *File) readPayload(e indexEntry) ([]byte, error) {
	out := make([]byte, 0, e.size)
	it := f.chunks(e.head)
	for chunk, ok := it.Next(); ok; chunk, ok = it.Next() {
		out = append(out, chunk...)
		if uint64(len(out)) >= e.size {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if uint64(len(out)) < e.size {
		return nil, fmt.Errorf("%w: chain at slot %d holds %d of %d payload bytes",
			ErrFormat, e.head, len(out), e.size)
	}
	return out[:e.size], nil
}
