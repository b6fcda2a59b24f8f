package encode

import (
	. "github.com/weberc2/assoofs/pkg/types"
)

// EncodeSuperblock writes `sb` at the start of `b`. The rest of the block is
// zeroed.
func EncodeSuperblock(sb *SuperblockInfo, b *[BlockSize]byte) {
	*b = [BlockSize]byte{}
	p := b[:]
	putU32(p, superblockMagicStart, sb.Magic)
	putU32(p, superblockBlockSizeStart, sb.BlockSize)
	putU64(p, superblockVersionStart, sb.Version)
	putU64(p, superblockInodesCountStart, sb.InodesCount)
	putU64(p, superblockFreeBlocksStart, sb.FreeBlocks)
}

// DecodeSuperblock reads the superblock fields verbatim; validating them is
// the caller's job.
func DecodeSuperblock(sb *SuperblockInfo, b *[BlockSize]byte) {
	p := b[:]
	*sb = SuperblockInfo{
		Magic:       getU32(p, superblockMagicStart),
		BlockSize:   getU32(p, superblockBlockSizeStart),
		Version:     getU64(p, superblockVersionStart),
		InodesCount: getU64(p, superblockInodesCountStart),
		FreeBlocks:  getU64(p, superblockFreeBlocksStart),
	}
}

const (
	superblockMagicStart = 0
	superblockMagicSize  = 4
	superblockMagicEnd   = superblockMagicStart + superblockMagicSize

	superblockBlockSizeStart = superblockMagicEnd
	superblockBlockSizeSize  = 4
	superblockBlockSizeEnd   = superblockBlockSizeStart + superblockBlockSizeSize

	superblockVersionStart = superblockBlockSizeEnd
	superblockVersionSize  = 8
	superblockVersionEnd   = superblockVersionStart + superblockVersionSize

	superblockInodesCountStart = superblockVersionEnd
	superblockInodesCountSize  = 8
	superblockInodesCountEnd   = superblockInodesCountStart + superblockInodesCountSize

	superblockFreeBlocksStart = superblockInodesCountEnd
	superblockFreeBlocksSize  = 8
	superblockFreeBlocksEnd   = superblockFreeBlocksStart + superblockFreeBlocksSize

	SuperblockInfoSize Byte = superblockFreeBlocksEnd
)
