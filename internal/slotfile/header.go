// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package slotfile

import (
	"fmt"
	"io"
)

type fileHeader struct {
	magic       uint64
	slotSize    uint64
	indexOffset uint64
	freeHead    uint64
}

func newFileHeader(slotSize, indexOffset uint64) fileHeader {
	return fileHeader{
		magic:       fileMagic,
		slotSize:    slotSize,
		indexOffset: indexOffset,
		freeHead:    0,
	}
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("header buffer too short: %d < %d", len(buf), HeaderSize)
	}
	putInt(buf[0:], h.magic)
	putInt(buf[IntSize:], h.slotSize)
	putInt(buf[2*IntSize:], h.indexOffset)
	putInt(buf[3*IntSize:], h.freeHead)
	return nil
}

func (h *fileHeader) UnmarshalBytes(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("%w: truncated header (%d < %d bytes)", ErrFormat, len(buf), HeaderSize)
	}
	h.magic = getInt(buf[0:])
	h.slotSize = getInt(buf[IntSize:])
	h.indexOffset = getInt(buf[2*IntSize:])
	h.freeHead = getInt(buf[3*IntSize:])

	if h.magic != fileMagic {
		return fmt.Errorf("%w: bad magic number %#x (want %#x) -- not a %d-bit indexed file or corrupted",
			ErrFormat, h.magic, fileMagic, 8*IntSize)
	}
	if h.slotSize < MinSlotSize {
		return fmt.Errorf("%w: slot size %d smaller than minimum %d", ErrFormat, h.slotSize, MinSlotSize)
	}
	if h.indexOffset < RecordsOffset || (h.indexOffset-RecordsOffset)%h.slotSize != 0 {
		return fmt.Errorf("%w: index offset %d does not sit on a slot boundary", ErrFormat, h.indexOffset)
	}
	return nil
}

func (h *fileHeader) writeTo(w io.WriterAt) error {
	var buf [HeaderSize]byte
	if err := h.MarshalTo(buf[:]); err != nil {
		return err
	}
	if _, err := w.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}
	return nil
}

func readFileHeader(r io.ReaderAt) (fileHeader, error) {
	var buf [HeaderSize]byte
	if _, err := r.ReadAt(buf[:], 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fileHeader{}, fmt.Errorf("%w: truncated header", ErrFormat)
		}
		return fileHeader{}, fmt.Errorf("f.ReadAt: %w", err)
	}
	var h fileHeader
	if err := h.UnmarshalBytes(buf[:]); err != nil {
		return fileHeader{}, err
	}
	return h, nil
}
