// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package indexed

import (
	"github.com/filekit/indexed/internal/slotfile"
)

// Error kinds, dispatched structurally with errors.Is.
var (
	// ErrFormat: bad magic, wrong integer width, or truncated/inconsistent
	// file structures. Fatal to the handle.
	ErrFormat = slotfile.ErrFormat
	// ErrNotFound: Open was asked for a path that does not exist.
	ErrNotFound = slotfile.ErrNotFound
	// ErrKeyNotFound: Get or Delete named an absent key. Recoverable.
	ErrKeyNotFound = slotfile.ErrKeyNotFound
	// ErrKeySerialization: the configured key codec rejected a key, or its
	// encoding cannot be represented in the on-disk index.
	ErrKeySerialization = slotfile.ErrKeySerialization
)
