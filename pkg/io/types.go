package io

import (
	. "github.com/weberc2/assoofs/pkg/types"
)

type ReadAt interface {
	ReadAt(offset Byte, b []byte) error
}

type WriteAt interface {
	WriteAt(offset Byte, p []byte) error
}

type Volume interface {
	ReadAt
	WriteAt
}

// BlockDevice reads and writes whole blocks. Each call is synchronous and
// either fully succeeds or returns an error.
type BlockDevice interface {
	ReadBlock(b Block, p *[BlockSize]byte) error
	WriteBlock(b Block, p *[BlockSize]byte) error
}
