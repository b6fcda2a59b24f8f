package superblock

import (
	"fmt"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

// ValidationErr is returned by `Load` when the superblock on the device
// doesn't describe an assoofs image. It is always fatal to mounting.
type ValidationErr struct {
	Reason ConstError
	Wanted uint64
	Found  uint64
}

func (err *ValidationErr) Error() string {
	return fmt.Sprintf(
		"%s: wanted `%#x`; found `%#x`",
		err.Reason,
		err.Wanted,
		err.Found,
	)
}

func (err *ValidationErr) Unwrap() error { return err.Reason }

// New returns the superblock of a freshly formatted image.
func New(freeBlocks uint64) SuperblockInfo {
	return SuperblockInfo{
		Magic:       Magic,
		BlockSize:   uint32(BlockSize),
		Version:     Version,
		InodesCount: 1,
		FreeBlocks:  freeBlocks,
	}
}

// Load reads block 0 and validates its magic and block size.
func Load(dev io.BlockDevice) (SuperblockInfo, error) {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(SuperblockBlock, &buf); err != nil {
		return SuperblockInfo{}, fmt.Errorf("loading superblock: %w", err)
	}

	var sb SuperblockInfo
	encode.DecodeSuperblock(&sb, &buf)
	if err := Validate(&sb); err != nil {
		return SuperblockInfo{}, fmt.Errorf("loading superblock: %w", err)
	}
	return sb, nil
}

func Validate(sb *SuperblockInfo) error {
	if sb.Magic != Magic {
		return &ValidationErr{
			Reason: InvalidMagicErr,
			Wanted: uint64(Magic),
			Found:  uint64(sb.Magic),
		}
	}
	if sb.BlockSize != uint32(BlockSize) {
		return &ValidationErr{
			Reason: InvalidBlockSizeErr,
			Wanted: uint64(BlockSize),
			Found:  uint64(sb.BlockSize),
		}
	}
	return nil
}

// Store persists `sb` to block 0.
func Store(dev io.BlockDevice, sb *SuperblockInfo) error {
	var buf [BlockSize]byte
	encode.EncodeSuperblock(sb, &buf)
	if err := dev.WriteBlock(SuperblockBlock, &buf); err != nil {
		return fmt.Errorf("storing superblock: %w", err)
	}
	return nil
}
