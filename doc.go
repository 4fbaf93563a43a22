// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package indexed implements a persistent, file-backed mapping from keys to
// arbitrary byte payloads, stored in a single self-describing binary file.
// It targets embedded use: a durable key→blob store with no database server.
//
// An indexed file looks like:
//
//	┌──────────────┬───────────┬──────────────┬────────────────┐
//	│ magic        │ slot size │ index offset │ free-list head │  header
//	├──────────────┴───────────┴──────────────┴────────────────┤
//	│ slot 0: next-pointer │ payload fragment                  │  records
//	├──────────────────────┼───────────────────────────────────┤
//	│ slot 1: next-pointer │ payload fragment                  │
//	│   ...                                                    │
//	├──────────────┬───────────────┬──────────┬────────────────┤
//	│ key length   │ key bytes     │ head slot│ payload length │  index
//	│   ...                                                    │
//	├──────────────┬───────────────────────────────────────────┘
//	│ 0            │                                               terminator
//	└──────────────┘
//
// All integers are big-endian and share one build-time width (see
// internal/slotfile.IntSize); the magic number encodes that width, so files
// written at one width are rejected by engines built at another.
//
// Payloads are chained across fixed-size slots linked by next-pointers, and
// unused slots form a free list headed in the file header. The index section
// is loaded into memory on open and fully rewritten on every mutation and on
// close.
//
// The store is strictly single-handle and single-threaded: concurrent access
// is undefined and guarded against with an advisory flock.
package indexed
