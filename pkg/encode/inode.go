package encode

import (
	"fmt"

	. "github.com/weberc2/assoofs/pkg/types"
)

// InodesPerBlock is the capacity of the inode store block.
const InodesPerBlock = int(BlockSize / InodeInfoSize)

// EncodeInodeInfo writes `info` into the `slot`th record of the inode store
// block `b`.
func EncodeInodeInfo(info *InodeInfo, b *[BlockSize]byte, slot int) error {
	start, end, ok := recordBounds(slot, InodeInfoSize)
	if !ok {
		return fmt.Errorf("encoding inode `%d` at slot `%d`: %w", info.Ino, slot, OutOfBoundsErr)
	}
	p := b[start:end]
	putIno(p, inodeInoStart, info.Ino)
	putU32(p, inodeModeStart, uint32(info.Mode))
	putU32(p, inodeReservedStart, 0)
	putBlock(p, inodeDataBlockStart, info.DataBlock)
	putU64(p, inodeFileSizeStart, uint64(info.FileSize))
	putU64(p, inodeChildrenCountStart, info.ChildrenCount)
	putU64(p, inodeDirRecordsCountStart, info.DirRecordsCount)
	return nil
}

// DecodeInodeInfo copies the `slot`th record of the inode store block `b`
// into `info`. `info` is not modified if the slot is out of bounds.
func DecodeInodeInfo(info *InodeInfo, b *[BlockSize]byte, slot int) error {
	start, end, ok := recordBounds(slot, InodeInfoSize)
	if !ok {
		return fmt.Errorf("decoding inode at slot `%d`: %w", slot, OutOfBoundsErr)
	}
	p := b[start:end]
	*info = InodeInfo{
		Ino:             getIno(p, inodeInoStart),
		Mode:            Mode(getU32(p, inodeModeStart)),
		DataBlock:       getBlock(p, inodeDataBlockStart),
		FileSize:        Byte(getU64(p, inodeFileSizeStart)),
		ChildrenCount:   getU64(p, inodeChildrenCountStart),
		DirRecordsCount: getU64(p, inodeDirRecordsCountStart),
	}
	return nil
}

const (
	inodeInoStart = 0
	inodeInoSize  = 8
	inodeInoEnd   = inodeInoStart + inodeInoSize

	inodeModeStart = inodeInoEnd
	inodeModeSize  = 4
	inodeModeEnd   = inodeModeStart + inodeModeSize

	inodeReservedStart = inodeModeEnd
	inodeReservedSize  = 4
	inodeReservedEnd   = inodeReservedStart + inodeReservedSize

	inodeDataBlockStart = inodeReservedEnd
	inodeDataBlockSize  = 8
	inodeDataBlockEnd   = inodeDataBlockStart + inodeDataBlockSize

	inodeFileSizeStart = inodeDataBlockEnd
	inodeFileSizeSize  = 8
	inodeFileSizeEnd   = inodeFileSizeStart + inodeFileSizeSize

	inodeChildrenCountStart = inodeFileSizeEnd
	inodeChildrenCountSize  = 8
	inodeChildrenCountEnd   = inodeChildrenCountStart + inodeChildrenCountSize

	inodeDirRecordsCountStart = inodeChildrenCountEnd
	inodeDirRecordsCountSize  = 8
	inodeDirRecordsCountEnd   = inodeDirRecordsCountStart + inodeDirRecordsCountSize

	InodeInfoSize Byte = inodeDirRecordsCountEnd
)
