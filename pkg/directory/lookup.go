package directory

import (
	"fmt"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Lookup returns the ino of the live entry in `parent` named `name`. Records
// are examined in stored order and the first exact match wins.
func Lookup(dev io.BlockDevice, parent *InodeInfo, name string) (Ino, error) {
	if !parent.IsDir() {
		return InoNil, fmt.Errorf(
			"looking up `%s` in inode `%d`: %w",
			name,
			parent.Ino,
			NotADirErr,
		)
	}

	var buf [BlockSize]byte
	if err := dev.ReadBlock(parent.DataBlock, &buf); err != nil {
		return InoNil, fmt.Errorf(
			"looking up `%s` in dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}

	entry, _, err := find(&buf, parent, name)
	if err != nil {
		return InoNil, fmt.Errorf(
			"looking up `%s` in dir `%d`: %w",
			name,
			parent.Ino,
			err,
		)
	}
	return entry.Ino, nil
}

func find(
	buf *[BlockSize]byte,
	parent *InodeInfo,
	name string,
) (DirEntry, int, error) {
	var entry DirEntry
	for i, n := 0, records(parent); i < n; i++ {
		if err := encode.DecodeDirEntry(&entry, buf, i); err != nil {
			return DirEntry{}, 0, err
		}
		if !entry.Removed && entry.Name == name {
			return entry, i, nil
		}
	}
	return DirEntry{}, 0, NotFoundErr
}
