package directory

import (
	"fmt"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/inode/table"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

// RemoveEntry tombstones the live entry named `name` and returns the ino it
// linked to. Tombstoned records are neither compacted nor reused. `parent` is
// only modified on success.
func RemoveEntry(
	dev io.BlockDevice,
	sb *SuperblockInfo,
	parent *InodeInfo,
	name string,
) (Ino, error) {
	if !parent.IsDir() {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from inode `%d`: %w",
			name,
			parent.Ino,
			NotADirErr,
		)
	}

	var buf [BlockSize]byte
	if err := dev.ReadBlock(parent.DataBlock, &buf); err != nil {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	entry, slot, err := find(&buf, parent, name)
	if err != nil {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	if err := encode.SetDirEntryRemoved(&buf, slot); err != nil {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	if err := dev.WriteBlock(parent.DataBlock, &buf); err != nil {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}

	updated := *parent
	if updated.ChildrenCount > 0 {
		updated.ChildrenCount--
	}
	if err := table.Update(dev, sb, &updated); err != nil {
		return InoNil, fmt.Errorf(
			"removing entry `%s` from dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	*parent = updated
	return entry.Ino, nil
}
