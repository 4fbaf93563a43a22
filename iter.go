// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package indexed

import "errors"

// Item is one key/value pair produced during iteration.
type Item struct {
	Key   any
	Value []byte
}

// cursor steps over a snapshot of the encoded key list taken when the
// iterator was created. Mutating the store during iteration does not
// disturb the cursor; entries deleted since the snapshot are skipped by
// value-producing iterators.
type cursor struct {
	f    *IndexedFile
	keys [][]byte
	pos  int
}

func (f *IndexedFile) snapshot() cursor {
	return cursor{f: f, keys: f.sf.Keys()}
}

// next advances to the next still-present entry, fetching its value when
// wantValue is set.
func (c *cursor) next(wantValue bool) (key any, value []byte, ok bool, err error) {
	for c.pos < len(c.keys) {
		kb := c.keys[c.pos]
		c.pos++

		key, err = c.f.codec.Decode(kb)
		if err != nil {
			return nil, nil, false, err
		}
		if !wantValue {
			return key, nil, true, nil
		}

		value, err = c.f.sf.Get(kb)
		if errors.Is(err, ErrKeyNotFound) {
			// deleted since the snapshot
			continue
		}
		if err != nil {
			return nil, nil, false, err
		}
		return key, value, true, nil
	}
	return nil, nil, false, nil
}

// KeyIter lazily produces the store's keys in insertion order. Each call to
// Keys creates an independent, restartable traversal.
type KeyIter struct {
	c   cursor
	err error
}

// Keys returns a fresh key iterator over a snapshot of the current key set.
func (f *IndexedFile) Keys() *KeyIter {
	return &KeyIter{c: f.snapshot()}
}

func (it *KeyIter) Next() (any, bool) {
	if it.err != nil {
		return nil, false
	}
	key, _, ok, err := it.c.next(false)
	if err != nil {
		it.err = err
		return nil, false
	}
	return key, ok
}

func (it *KeyIter) Err() error {
	return it.err
}

// ValueIter lazily produces payloads, one Get per key.
type ValueIter struct {
	c   cursor
	err error
}

// Values returns a fresh value iterator over a snapshot of the current key set.
func (f *IndexedFile) Values() *ValueIter {
	return &ValueIter{c: f.snapshot()}
}

func (it *ValueIter) Next() ([]byte, bool) {
	if it.err != nil {
		return nil, false
	}
	_, value, ok, err := it.c.next(true)
	if err != nil {
		it.err = err
		return nil, false
	}
	return value, ok
}

func (it *ValueIter) Err() error {
	return it.err
}

// ItemIter lazily produces key/value pairs, one Get per key.
type ItemIter struct {
	c   cursor
	err error
}

// Items returns a fresh item iterator over a snapshot of the current key set.
func (f *IndexedFile) Items() *ItemIter {
	return &ItemIter{c: f.snapshot()}
}

func (it *ItemIter) Next() (Item, bool) {
	if it.err != nil {
		return Item{}, false
	}
	key, value, ok, err := it.c.next(true)
	if err != nil {
		it.err = err
		return Item{}, false
	}
	if !ok {
		return Item{}, false
	}
	return Item{Key: key, Value: value}, true
}

func (it *ItemIter) Err() error {
	return it.err
}
