package alloc

import (
	"math/bits"

	. "github.com/weberc2/assoofs/pkg/types"
)

type Allocator interface {
	Alloc() (Block, bool)
	Reserve(Block)
	Free(Block)
}

var _ Allocator = (*Bitfield)(nil)

// Bitfield is the superblock's free block map: bit `n` is set iff block `n`
// is free. It can track at most `MaxBlocks` blocks.
type Bitfield uint64

// NewBitfield returns a map for a device of `blocks` blocks with every
// non-reserved block free.
func NewBitfield(blocks Block) Bitfield {
	if blocks > MaxBlocks {
		blocks = MaxBlocks
	}
	var bf Bitfield
	for b := LastReservedBlock + 1; b < blocks; b++ {
		bf.Free(b)
	}
	return bf
}

// First returns the lowest free block without reserving it.
func (bf Bitfield) First() (Block, bool) {
	if bf == 0 {
		return BlockNil, false
	}
	return Block(bits.TrailingZeros64(uint64(bf))), true
}

func (bf *Bitfield) Alloc() (Block, bool) {
	b, ok := bf.First()
	if ok {
		bf.Reserve(b)
	}
	return b, ok
}

func (bf *Bitfield) Reserve(b Block) {
	if b < MaxBlocks {
		*bf &^= 1 << b
	}
}

func (bf *Bitfield) Free(b Block) {
	if b < MaxBlocks {
		*bf |= 1 << b
	}
}

func (bf Bitfield) IsFree(b Block) bool {
	return b < MaxBlocks && bf&(1<<b) != 0
}

func (bf Bitfield) FreeCount() int { return bits.OnesCount64(uint64(bf)) }
