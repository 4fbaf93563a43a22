// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dgryski/go-farm"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/filekit/indexed/internal/bitset"
)

var (
	// ErrFormat means the file is not a readable indexed file: bad magic,
	// wrong integer width, or truncated/inconsistent structures. The handle
	// is not usable.
	ErrFormat = errors.New("not a valid indexed file")
	// ErrNotFound means Open was asked for a path that does not exist.
	ErrNotFound = errors.New("indexed file does not exist")
	// ErrKeyNotFound means a lookup or delete named an absent key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeySerialization means a key cannot be represented in the on-disk
	// index encoding (or, at the façade, that the codec rejected its type).
	ErrKeySerialization = errors.New("cannot serialize key")

	// errOutOfSpace is raised when the free list runs dry; allocate always
	// resolves it by growing the file, so it never escapes this package.
	errOutOfSpace = errors.New("free list exhausted")
)

// File is one open indexed file: a slot array holding record chains,
// preceded by a fixed header and followed by the serialized key index.
type File struct {
	f    *os.File
	path string

	slotSize    uint64
	indexOffset uint64
	freeHead    uint64

	index  *recordIndex
	log    *zap.SugaredLogger
	closed atomic.Bool
}

// Create makes a new indexed file at path, truncating any existing file.
// slotSize fixes the per-slot width for the file's lifetime (clamped up to
// MinSlotSize; non-positive selects DefaultSlotSize) and slotHint sizes the
// initial free list.
func Create(path string, slotSize, slotHint int, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slotSize <= 0 {
		slotSize = DefaultSlotSize
	}
	if slotSize < MinSlotSize {
		slotSize = MinSlotSize
	}
	if slotHint < 1 {
		slotHint = 1
	}

	sugar := logger.Sugar()
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		sugar.Warnw("truncating existing indexed file",
			"path", path, "bytes", st.Size())
	}

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile: %w", err)
	}
	if err := lockFile(fd, path); err != nil {
		_ = fd.Close()
		return nil, err
	}

	f := &File{
		f:           fd,
		path:        path,
		slotSize:    uint64(slotSize),
		indexOffset: RecordsOffset + uint64(slotHint)*uint64(slotSize),
		freeHead:    0,
		index:       newRecordIndex(),
		log:         sugar,
	}

	if err := fd.Truncate(int64(f.indexOffset)); err != nil {
		f.discard()
		return nil, fmt.Errorf("f.Truncate: %w", err)
	}
	if err := f.initFreeList(0); err != nil {
		f.discard()
		return nil, err
	}
	if err := f.writeHeader(); err != nil {
		f.discard()
		return nil, err
	}
	if err := f.flushIndex(); err != nil {
		f.discard()
		return nil, err
	}

	f.log.Debugw("created indexed file",
		"path", path, "slotSize", slotSize, "slots", slotHint)
	return f, nil
}

// Open loads an existing indexed file: header first, then the key index.
// A missing path fails with ErrNotFound.
func Open(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fd, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("os.OpenFile: %w", err)
	}
	if err := lockFile(fd, path); err != nil {
		_ = fd.Close()
		return nil, err
	}

	h, err := readFileHeader(fd)
	if err != nil {
		unlockFile(fd)
		_ = fd.Close()
		return nil, err
	}

	f := &File{
		f:           fd,
		path:        path,
		slotSize:    h.slotSize,
		indexOffset: h.indexOffset,
		freeHead:    h.freeHead,
		index:       newRecordIndex(),
		log:         logger.Sugar(),
	}

	st, err := fd.Stat()
	if err != nil {
		f.discard()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	if st.Size() < int64(f.indexOffset)+IntSize {
		f.discard()
		return nil, fmt.Errorf("%w: file too short to hold its index (%d bytes, index at %d)",
			ErrFormat, st.Size(), f.indexOffset)
	}
	sr := io.NewSectionReader(fd, int64(f.indexOffset), st.Size()-int64(f.indexOffset))
	if err := f.index.readFrom(bufio.NewReader(sr)); err != nil {
		f.discard()
		return nil, err
	}

	f.log.Debugw("opened indexed file",
		"path", path, "slotSize", f.slotSize, "slots", f.numSlots(), "keys", f.index.len())
	return f, nil
}

// discard abandons a half-constructed handle without flushing anything.
func (f *File) discard() {
	unlockFile(f.f)
	_ = f.f.Close()
}

func lockFile(fd *os.File, path string) error {
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return fmt.Errorf("indexed file %s already in use: %w", path, err)
	}
	return nil
}

func unlockFile(fd *os.File) {
	_ = unix.Flock(int(fd.Fd()), unix.LOCK_UN)
}

func (f *File) numSlots() uint64 {
	return (f.indexOffset - RecordsOffset) / f.slotSize
}

// usable is the payload capacity of one slot, after the next-pointer.
func (f *File) usable() int {
	return int(f.slotSize) - IntSize
}

func (f *File) slotOffset(slot uint64) int64 {
	return int64(RecordsOffset + slot*f.slotSize)
}

func (f *File) writeHeader() error {
	h := fileHeader{
		magic:       fileMagic,
		slotSize:    f.slotSize,
		indexOffset: f.indexOffset,
		freeHead:    f.freeHead,
	}
	return h.writeTo(f.f)
}

// flushIndex rewrites the whole on-disk index from the in-memory mapping.
// Every index mutation pays this full-rewrite cost.
func (f *File) flushIndex() error {
	var buf bytes.Buffer
	if err := f.index.writeTo(&buf); err != nil {
		return err
	}
	if _, err := f.f.WriteAt(buf.Bytes(), int64(f.indexOffset)); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}
	// drop stale index bytes past the terminator
	if err := f.f.Truncate(int64(f.indexOffset) + int64(buf.Len())); err != nil {
		return fmt.Errorf("f.Truncate: %w", err)
	}
	return nil
}

// Get returns the payload stored under the encoded key.
func (f *File) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	e, ok := f.index.get(key)
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrKeyNotFound)
	}
	return f.readPayload(e)
}

// Put stores value under the encoded key, replacing any existing payload.
// The old chain is released before reallocating, so overwriting never leaks
// slots.
func (f *File) Put(key, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if old, ok := f.index.get(key); ok {
		if err := f.release(old.head); err != nil {
			return err
		}
	}

	usable := f.usable()
	needed := (len(value) + usable - 1) / usable
	if needed < 1 {
		needed = 1
	}
	slots, err := f.allocate(needed)
	if err != nil {
		return err
	}
	if err := f.writeChain(slots, value); err != nil {
		return err
	}
	f.index.set(key, indexEntry{head: slots[0], size: uint64(len(value))})
	return f.flushIndex()
}

// Delete removes the encoded key and returns its chain to the free list.
func (f *File) Delete(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	e, ok := f.index.get(key)
	if !ok {
		return fmt.Errorf("key %q: %w", key, ErrKeyNotFound)
	}
	f.index.delete(key)
	if err := f.flushIndex(); err != nil {
		return err
	}
	return f.release(e.head)
}

// Has reports whether the encoded key is present. Pure in-memory lookup.
// Keys the index cannot encode are never present.
func (f *File) Has(key []byte) bool {
	if checkKey(key) != nil {
		return false
	}
	_, ok := f.index.get(key)
	return ok
}

// Len returns the number of keys.
func (f *File) Len() int {
	return f.index.len()
}

// Keys returns a snapshot of the encoded keys in insertion order.
func (f *File) Keys() [][]byte {
	return f.index.keys()
}

// SlotSize returns the per-slot width the file was created with.
func (f *File) SlotSize() int {
	return int(f.slotSize)
}

// NumSlots returns the current size of the record area in slots.
func (f *File) NumSlots() uint64 {
	return f.numSlots()
}

// Check audits the allocator invariant: every slot is reachable from exactly
// one of the free list or a single record chain. Violations fail with
// ErrFormat.
func (f *File) Check() error {
	n := f.numSlots()
	seen := bitset.New(n)

	mark := func(head uint64, what string) error {
		it := f.chain(head)
		for slot, ok := it.Next(); ok; slot, ok = it.Next() {
			if seen.IsSet(slot) {
				return fmt.Errorf("%w: slot %d reachable twice (via %s)", ErrFormat, slot, what)
			}
			seen.Set(slot)
		}
		return it.Err()
	}

	if err := mark(f.freeHead, "free list"); err != nil {
		return err
	}
	for _, key := range f.index.keys() {
		e, _ := f.index.get(key)
		if err := mark(e.head, fmt.Sprintf("key %q", key)); err != nil {
			return err
		}
	}

	if got := uint64(seen.Count()); got != n {
		return fmt.Errorf("%w: %d of %d slots reachable", ErrFormat, got, n)
	}
	return nil
}

// Fingerprint returns a 64-bit hash over every key and payload in index
// order. Because on-disk index order survives a reopen, equal stores yield
// equal fingerprints across sessions.
func (f *File) Fingerprint() (uint64, error) {
	h := uint64(f.index.len())
	for _, key := range f.index.keys() {
		e, _ := f.index.get(key)
		payload, err := f.readPayload(e)
		if err != nil {
			return 0, err
		}
		h = farm.Hash64WithSeeds(key, h, uint64(len(key)))
		h = farm.Hash64WithSeeds(payload, h, uint64(len(payload)))
	}
	return h, nil
}

// Close flushes the index and header and releases the file handle. A second
// Close is an error.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return fmt.Errorf("indexed file %s: %w", f.path, os.ErrClosed)
	}
	if err := f.flushIndex(); err != nil {
		return err
	}
	if err := f.writeHeader(); err != nil {
		return err
	}
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %w", err)
	}
	unlockFile(f.f)
	if err := f.f.Close(); err != nil {
		return fmt.Errorf("f.Close: %w", err)
	}
	f.log.Debugw("closed indexed file", "path", f.path)
	return nil
}
