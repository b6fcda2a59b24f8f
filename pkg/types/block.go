package types

type Block uint64

type Byte int64

const (
	BlockSize Byte = 4096

	SuperblockBlock   Block = 0
	InodeStoreBlock   Block = 1
	RootDirDataBlock  Block = 2
	LastReservedBlock Block = RootDirDataBlock

	// MaxBlocks is the number of blocks tracked by the superblock's free
	// block bitfield.
	MaxBlocks Block = 64

	BlockNil Block = 0
)

func (b Block) Offset() Byte { return Byte(b) * BlockSize }
