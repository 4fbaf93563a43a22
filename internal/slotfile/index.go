// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"fmt"
	"io"
)

// maxIndexKeyLen bounds key lengths accepted when loading an index, so a
// corrupted length field can't trigger an enormous allocation. checkKey
// enforces the same bound on the write path, so Put can never produce a
// file that readFrom refuses.
const maxIndexKeyLen = 1 << 20

// checkKey rejects keys the index encoding cannot represent: a zero key
// length is byte-identical to the index terminator, and readFrom treats
// lengths beyond maxIndexKeyLen as corruption.
func checkKey(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key (a zero key length is the index terminator)", ErrKeySerialization)
	}
	if len(key) > maxIndexKeyLen {
		return fmt.Errorf("%w: key length %d exceeds %d", ErrKeySerialization, len(key), maxIndexKeyLen)
	}
	return nil
}

type indexEntry struct {
	head uint64 // first slot of the record chain
	size uint64 // payload length in bytes
}

// recordIndex is the in-memory mapping from encoded key to chain head and
// payload length. Insertion order is preserved so iteration is deterministic
// within a session and matches the on-disk entry order after a reopen.
type recordIndex struct {
	entries map[string]indexEntry
	order   []string
}

func newRecordIndex() *recordIndex {
	return &recordIndex{entries: make(map[string]indexEntry)}
}

func (ix *recordIndex) get(key []byte) (indexEntry, bool) {
	e, ok := ix.entries[string(key)]
	return e, ok
}

func (ix *recordIndex) set(key []byte, e indexEntry) {
	k := string(key)
	if _, exists := ix.entries[k]; !exists {
		ix.order = append(ix.order, k)
	}
	ix.entries[k] = e
}

func (ix *recordIndex) delete(key []byte) bool {
	k := string(key)
	if _, exists := ix.entries[k]; !exists {
		return false
	}
	delete(ix.entries, k)
	for i, o := range ix.order {
		if o == k {
			ix.order = append(ix.order[:i], ix.order[i+1:]...)
			break
		}
	}
	return true
}

func (ix *recordIndex) len() int {
	return len(ix.entries)
}

// keys returns the encoded keys in insertion order. The returned slices are
// copies; mutating them does not affect the index.
func (ix *recordIndex) keys() [][]byte {
	out := make([][]byte, 0, len(ix.order))
	for _, k := range ix.order {
		out = append(out, []byte(k))
	}
	return out
}

// readFrom loads entries until the zero-length terminator. Truncated or
// malformed data fails with ErrFormat.
func (ix *recordIndex) readFrom(r io.Reader) error {
	intBuf := make([]byte, IntSize)
	readInt := func() (uint64, error) {
		if _, err := io.ReadFull(r, intBuf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, fmt.Errorf("%w: truncated index", ErrFormat)
			}
			return 0, fmt.Errorf("io.ReadFull: %w", err)
		}
		return getInt(intBuf), nil
	}

	for {
		keyLen, err := readInt()
		if err != nil {
			return err
		}
		if keyLen == 0 {
			return nil
		}
		if keyLen > maxIndexKeyLen {
			return fmt.Errorf("%w: implausible key length %d in index", ErrFormat, keyLen)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return fmt.Errorf("%w: truncated index key", ErrFormat)
		}
		head, err := readInt()
		if err != nil {
			return err
		}
		size, err := readInt()
		if err != nil {
			return err
		}
		ix.set(key, indexEntry{head: head, size: size})
	}
}

// writeTo serializes every entry in insertion order, then the terminator.
func (ix *recordIndex) writeTo(w io.Writer) error {
	intBuf := make([]byte, IntSize)
	writeInt := func(v uint64) error {
		putInt(intBuf, v)
		if _, err := w.Write(intBuf); err != nil {
			return fmt.Errorf("w.Write: %w", err)
		}
		return nil
	}

	for _, k := range ix.order {
		e := ix.entries[k]
		if err := writeInt(uint64(len(k))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(k)); err != nil {
			return fmt.Errorf("w.Write: %w", err)
		}
		if err := writeInt(e.head); err != nil {
			return err
		}
		if err := writeInt(e.size); err != nil {
			return err
		}
	}
	return writeInt(0)
}
