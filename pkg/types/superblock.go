package types

const (
	Magic   uint32 = 0x20200406
	Version uint64 = 1
)

type SuperblockInfo struct {
	Magic       uint32
	BlockSize   uint32
	Version     uint64
	InodesCount uint64

	// FreeBlocks has bit `n` set iff block `n` is free.
	FreeBlocks uint64
}
