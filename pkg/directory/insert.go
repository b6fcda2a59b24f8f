package directory

import (
	"errors"
	"fmt"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/inode/table"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

// InsertEntry appends a record linking `name` to `ino` and persists both the
// directory block and the parent's counters. The directory block is written
// first; until the parent is persisted the new record lies beyond
// `DirRecordsCount` and is never read. `parent` is only modified on success.
func InsertEntry(
	dev io.BlockDevice,
	sb *SuperblockInfo,
	parent *InodeInfo,
	name string,
	ino Ino,
) error {
	if !parent.IsDir() {
		return fmt.Errorf(
			"inserting entry `%s` into inode `%d`: %w",
			name,
			parent.Ino,
			NotADirErr,
		)
	}
	if err := ValidateName(name); err != nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	slot := parent.DirRecordsCount
	if slot >= uint64(Capacity) {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			DirectoryFullErr,
		)
	}

	var buf [BlockSize]byte
	if err := dev.ReadBlock(parent.DataBlock, &buf); err != nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	if _, _, err := find(&buf, parent, name); err == nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			ExistsErr,
		)
	} else if !errors.Is(err, NotFoundErr) {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}

	if err := encode.EncodeDirEntry(
		&DirEntry{Name: name, Ino: ino},
		&buf,
		int(slot),
	); err != nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	if err := dev.WriteBlock(parent.DataBlock, &buf); err != nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}

	updated := *parent
	updated.ChildrenCount++
	updated.DirRecordsCount++
	if err := table.Update(dev, sb, &updated); err != nil {
		return fmt.Errorf(
			"inserting entry `%s` into dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	*parent = updated
	return nil
}
