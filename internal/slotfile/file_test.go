// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreate_ClampsSlotSize(t *testing.T) {
	dir := t.TempDir()

	f, err := Create(filepath.Join(dir, "tiny.indexed"), 4, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, MinSlotSize, f.SlotSize())
	require.NoError(t, f.Close())

	f, err = Create(filepath.Join(dir, "default.indexed"), 0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSlotSize, f.SlotSize())
	require.NoError(t, f.Close())
}

// Create over an existing store starts over, but not silently.
func TestCreate_WarnsBeforeTruncatingExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.indexed")

	f, err := Create(path, 16, 4, nil)
	require.NoError(t, err)
	require.NoError(t, f.Put([]byte("k"), []byte("v")))
	require.NoError(t, f.Close())

	core, logs := observer.New(zap.WarnLevel)
	f, err = Create(path, 16, 4, zap.New(core))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	warnings := logs.FilterMessage("truncating existing indexed file").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, path, warnings[0].ContextMap()["path"])

	// the old contents really are gone
	assert.Equal(t, 0, f.Len())
	assert.False(t, f.Has([]byte("k")))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.indexed"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_BadFiles(t *testing.T) {
	dir := t.TempDir()

	// garbage where the magic should be
	garbage := filepath.Join(dir, "garbage.indexed")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte{0xaa}, 64), 0o644))
	_, err := Open(garbage, nil)
	assert.ErrorIs(t, err, ErrFormat)

	// shorter than a header
	short := filepath.Join(dir, "short.indexed")
	require.NoError(t, os.WriteFile(short, []byte{0xd8}, 0o644))
	_, err = Open(short, nil)
	assert.ErrorIs(t, err, ErrFormat)

	// valid header, index chopped off
	chopped := filepath.Join(dir, "chopped.indexed")
	f, err := Create(chopped, 16, 4, nil)
	require.NoError(t, err)
	indexOffset := f.indexOffset
	require.NoError(t, f.Close())
	require.NoError(t, os.Truncate(chopped, int64(indexOffset)))
	_, err = Open(chopped, nil)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestFile_ReopenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.indexed")

	want := map[string][]byte{
		"empty": {},
		"small": []byte("hello"),
		"big":   bytes.Repeat([]byte("0123456789"), 100),
	}
	order := []string{"empty", "small", "big"}

	f, err := Create(path, 32, 4, nil)
	require.NoError(t, err)
	for _, k := range order {
		require.NoError(t, f.Put([]byte(k), want[k]))
	}
	fpBefore, err := f.Fingerprint()
	require.NoError(t, err)
	require.NoError(t, f.Check())
	require.NoError(t, f.Close())

	f, err = Open(path, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	assert.Equal(t, 3, f.Len())
	var gotOrder []string
	for _, k := range f.Keys() {
		gotOrder = append(gotOrder, string(k))
	}
	assert.Equal(t, order, gotOrder)

	for k, v := range want {
		got, err := f.Get([]byte(k))
		require.NoError(t, err)
		assert.Equal(t, v, got, "key %q", k)
	}

	fpAfter, err := f.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fpBefore, fpAfter)
	require.NoError(t, f.Check())
}

func TestPut_OverwriteReturnsSlots(t *testing.T) {
	f := newTestFile(t, 16, 8)

	require.NoError(t, f.Put([]byte("k"), bytes.Repeat([]byte("a"), 30))) // 3 slots
	free, err := f.FreeSlots()
	require.NoError(t, err)
	require.Equal(t, 5, free)

	require.NoError(t, f.Put([]byte("k"), []byte("b"))) // 1 slot
	free, err = f.FreeSlots()
	require.NoError(t, err)
	assert.Equal(t, 7, free)

	got, err := f.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
	require.NoError(t, f.Check())
}

func TestDelete_FreesChain(t *testing.T) {
	f := newTestFile(t, 16, 4)

	require.NoError(t, f.Put([]byte("k"), bytes.Repeat([]byte("a"), 20)))
	require.NoError(t, f.Delete([]byte("k")))

	assert.False(t, f.Has([]byte("k")))
	_, err := f.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	err = f.Delete([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	free, err := f.FreeSlots()
	require.NoError(t, err)
	assert.Equal(t, 4, free)
	require.NoError(t, f.Check())
}

func TestPut_RejectsUnencodableKeys(t *testing.T) {
	f := newTestFile(t, 16, 4)

	// a zero-length key would serialize as the index terminator
	assert.ErrorIs(t, f.Put(nil, []byte("v")), ErrKeySerialization)
	assert.ErrorIs(t, f.Put([]byte{}, []byte("v")), ErrKeySerialization)

	// and lengths past the cap would be refused as corruption on reload
	huge := bytes.Repeat([]byte("k"), maxIndexKeyLen+1)
	assert.ErrorIs(t, f.Put(huge, []byte("v")), ErrKeySerialization)

	_, err := f.Get(nil)
	assert.ErrorIs(t, err, ErrKeySerialization)
	assert.ErrorIs(t, f.Delete(nil), ErrKeySerialization)
	assert.False(t, f.Has(nil))

	assert.Equal(t, 0, f.Len())
	require.NoError(t, f.Check())
}

// A rejected key must not disturb the store: entries written around the
// rejection survive a reopen and the allocator stays consistent.
func TestPut_RejectedKeyLeavesStoreIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.indexed")

	f, err := Create(path, 16, 4, nil)
	require.NoError(t, err)
	require.NoError(t, f.Put([]byte("before"), []byte("1")))
	require.ErrorIs(t, f.Put([]byte{}, bytes.Repeat([]byte("x"), 17)), ErrKeySerialization)
	require.NoError(t, f.Put([]byte("after"), []byte("2")))
	require.NoError(t, f.Close())

	f, err = Open(path, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	assert.Equal(t, 2, f.Len())
	got, err := f.Get([]byte("before"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
	got, err = f.Get([]byte("after"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
	require.NoError(t, f.Check())
}

// The longest key Put accepts is the longest key Open accepts back.
func TestPut_MaxKeyLenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.indexed")

	key := bytes.Repeat([]byte("k"), maxIndexKeyLen)

	f, err := Create(path, 64, 2, nil)
	require.NoError(t, err)
	require.NoError(t, f.Put(key, []byte("v")))
	require.NoError(t, f.Close())

	f, err = Open(path, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, f.Close())
	}()

	got, err := f.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestFile_ConservationUnderChurn(t *testing.T) {
	f := newTestFile(t, 16, 2)

	keys := []string{"a", "b", "c", "d", "e"}
	for round := 0; round < 3; round++ {
		for i, k := range keys {
			payload := bytes.Repeat([]byte{byte('0' + i)}, (i+round*7)%50)
			require.NoError(t, f.Put([]byte(k), payload))
			require.NoError(t, f.Check())
		}
		require.NoError(t, f.Delete([]byte(keys[round])))
		require.NoError(t, f.Check())
		require.NoError(t, f.Put([]byte(keys[round]), []byte("back")))
		require.NoError(t, f.Check())
	}

	free, err := f.FreeSlots()
	require.NoError(t, err)
	used := 0
	for _, k := range f.Keys() {
		e, _ := f.index.get(k)
		it := f.chain(e.head)
		for _, ok := it.Next(); ok; _, ok = it.Next() {
			used++
		}
		require.NoError(t, it.Err())
	}
	assert.Equal(t, f.numSlots(), uint64(free+used))
}

func TestFile_FingerprintTracksContent(t *testing.T) {
	f := newTestFile(t, 16, 4)

	require.NoError(t, f.Put([]byte("k"), []byte("v1")))
	fp1, err := f.Fingerprint()
	require.NoError(t, err)

	require.NoError(t, f.Put([]byte("k"), []byte("v2")))
	fp2, err := f.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)

	require.NoError(t, f.Put([]byte("k"), []byte("v1")))
	fp3, err := f.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp3)
}

func TestFile_SecondHandleRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.indexed")

	f, err := Create(path, 16, 4, nil)
	require.NoError(t, err)

	_, err = Open(path, nil)
	assert.Error(t, err)

	require.NoError(t, f.Close())

	f2, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, f2.Close())
}

func TestFile_DoubleCloseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.indexed")
	f, err := Create(path, 16, 4, nil)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Close(), os.ErrClosed)
}
