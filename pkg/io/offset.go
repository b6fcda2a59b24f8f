package io

import (
	"fmt"

	. "github.com/weberc2/assoofs/pkg/types"
)

type OffsetReadAt struct {
	inner  ReadAt
	offset Byte
}

func (r *OffsetReadAt) ReadAt(offset Byte, b []byte) error {
	if err := r.inner.ReadAt(offset+r.offset, b); err != nil {
		return fmt.Errorf(
			"reading additional offset `%d` from base offset `%d` (total "+
				"offset `%d` bytes): %w",
			offset,
			r.offset,
			offset+r.offset,
			err,
		)
	}
	return nil
}

type OffsetWriteAt struct {
	inner  WriteAt
	offset Byte
}

func (r *OffsetWriteAt) WriteAt(offset Byte, b []byte) error {
	if err := r.inner.WriteAt(offset+r.offset, b); err != nil {
		return fmt.Errorf(
			"writing additional offset `%d` from base offset `%d` (total "+
				"offset `%d` bytes): %w",
			offset,
			r.offset,
			offset+r.offset,
			err,
		)
	}
	return nil
}

// OffsetVolume exposes the part of `inner` starting at `offset`, e.g. an
// image embedded in a larger disk file.
type OffsetVolume struct {
	OffsetReadAt
	OffsetWriteAt
}

func NewOffsetVolume(inner Volume, offset Byte) *OffsetVolume {
	return &OffsetVolume{
		OffsetReadAt:  OffsetReadAt{inner: inner, offset: offset},
		OffsetWriteAt: OffsetWriteAt{inner: inner, offset: offset},
	}
}
