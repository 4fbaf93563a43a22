// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package indexed

import (
	"github.com/filekit/indexed/internal/slotfile"
)

// IndexedFile is one open store: a mapping-like API over the slot-file
// engine. It is not safe for concurrent use.
type IndexedFile struct {
	sf    *slotfile.File
	codec KeyCodec
}

// Create makes a new store at path, truncating any existing file. slotSize
// fixes the record slot width for the file's lifetime (0 selects the
// default of 512) and slotHint sizes the initial record area; the file grows
// by doubling as needed.
func Create(path string, slotSize, slotHint int, opts ...Option) (*IndexedFile, error) {
	cfg := newConfig(opts)
	sf, err := slotfile.Create(path, slotSize, slotHint, cfg.logger)
	if err != nil {
		return nil, err
	}
	return &IndexedFile{sf: sf, codec: cfg.codec}, nil
}

// Open loads an existing store. A missing path fails with ErrNotFound; an
// unreadable or incompatible file fails with ErrFormat.
func Open(path string, opts ...Option) (*IndexedFile, error) {
	cfg := newConfig(opts)
	sf, err := slotfile.Open(path, cfg.logger)
	if err != nil {
		return nil, err
	}
	return &IndexedFile{sf: sf, codec: cfg.codec}, nil
}

// With opens the store at path, runs fn, and closes the store on every exit
// path. A close error is reported only if fn itself succeeded.
func With(path string, fn func(*IndexedFile) error, opts ...Option) (err error) {
	f, err := Open(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

// Get returns the payload stored under key, or ErrKeyNotFound.
func (f *IndexedFile) Get(key any) ([]byte, error) {
	kb, err := f.codec.Encode(key)
	if err != nil {
		return nil, err
	}
	return f.sf.Get(kb)
}

// Set stores value under key, replacing any existing payload. The previous
// chain is released before reallocating, so overwrites never leak slots.
// Keys whose encoding is empty or too long for the index fail with
// ErrKeySerialization.
func (f *IndexedFile) Set(key any, value []byte) error {
	kb, err := f.codec.Encode(key)
	if err != nil {
		return err
	}
	return f.sf.Put(kb, value)
}

// Delete removes key, or fails with ErrKeyNotFound.
func (f *IndexedFile) Delete(key any) error {
	kb, err := f.codec.Encode(key)
	if err != nil {
		return err
	}
	return f.sf.Delete(kb)
}

// Contains reports whether key is present. No file I/O; the only possible
// error is the codec rejecting the key.
func (f *IndexedFile) Contains(key any) (bool, error) {
	kb, err := f.codec.Encode(key)
	if err != nil {
		return false, err
	}
	return f.sf.Has(kb), nil
}

// Len returns the number of keys.
func (f *IndexedFile) Len() int {
	return f.sf.Len()
}

// NumSlots returns the current size of the record area in slots.
func (f *IndexedFile) NumSlots() uint64 {
	return f.sf.NumSlots()
}

// FreeSlots counts the slots currently on the free list.
func (f *IndexedFile) FreeSlots() (int, error) {
	return f.sf.FreeSlots()
}

// SlotSize returns the per-slot width the file was created with.
func (f *IndexedFile) SlotSize() int {
	return f.sf.SlotSize()
}

// Check audits the allocator invariant: every slot reachable from exactly
// one of the free list or a single record chain.
func (f *IndexedFile) Check() error {
	return f.sf.Check()
}

// Fingerprint returns a 64-bit content hash over all keys and payloads,
// stable across close/reopen of an unchanged store.
func (f *IndexedFile) Fingerprint() (uint64, error) {
	return f.sf.Fingerprint()
}

// Close flushes the index and header and releases the file handle. Calling
// Close twice is an error.
func (f *IndexedFile) Close() error {
	return f.sf.Close()
}
