package assoofs

import (
	"fmt"

	"github.com/weberc2/assoofs/pkg/alloc"
	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/superblock"
	. "github.com/weberc2/assoofs/pkg/types"
)

type FormatOptions struct {
	// Blocks is the size of the device in blocks. Only the first
	// `MaxBlocks` are ever allocated. Defaults to `MaxBlocks`.
	Blocks Block

	// RootPerm defaults to 0755.
	RootPerm Mode
}

// Format writes an empty image to `dev`: the superblock, an inode table
// holding only the root directory, and the root's empty data block.
func Format(dev io.BlockDevice, opts FormatOptions) error {
	if opts.Blocks == 0 {
		opts.Blocks = MaxBlocks
	}
	if opts.Blocks <= LastReservedBlock {
		return fmt.Errorf(
			"formatting device of `%d` blocks: %w",
			opts.Blocks,
			OutOfBlocksErr,
		)
	}
	if opts.RootPerm == 0 {
		opts.RootPerm = 0o755
	}

	var buf [BlockSize]byte
	if err := dev.WriteBlock(RootDirDataBlock, &buf); err != nil {
		return fmt.Errorf("formatting: writing root directory: %w", err)
	}

	root := InodeInfo{
		Ino:       InoRoot,
		Mode:      NewMode(FileTypeDir, opts.RootPerm),
		DataBlock: RootDirDataBlock,
	}
	if err := encode.EncodeInodeInfo(&root, &buf, 0); err != nil {
		return fmt.Errorf("formatting: encoding root inode: %w", err)
	}
	if err := dev.WriteBlock(InodeStoreBlock, &buf); err != nil {
		return fmt.Errorf("formatting: writing inode store: %w", err)
	}

	// the superblock goes last so a partially formatted device never
	// validates
	sb := superblock.New(uint64(alloc.NewBitfield(opts.Blocks)))
	if err := superblock.Store(dev, &sb); err != nil {
		return fmt.Errorf("formatting: %w", err)
	}
	return nil
}
