package directory

import (
	"fmt"
	stdio "io"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Handle is a cursor over a directory's records. It holds a snapshot of the
// parent's counters taken at `Open`; reopening restarts the listing.
type Handle struct {
	ino     Ino
	block   Block
	records int
	offset  int
}

func Open(parent *InodeInfo, h *Handle) error {
	if !parent.IsDir() {
		return fmt.Errorf(
			"opening inode `%d` as directory: %w",
			parent.Ino,
			NotADirErr,
		)
	}
	*h = Handle{
		ino:     parent.Ino,
		block:   parent.DataBlock,
		records: records(parent),
	}
	return nil
}

// ReadNext populates `out` with the next live entry, skipping tombstones. It
// returns `io.EOF` once the records are exhausted.
func ReadNext(dev io.BlockDevice, h *Handle, out *Entry) error {
	if h.offset >= h.records {
		return stdio.EOF
	}

	var buf [BlockSize]byte
	if err := dev.ReadBlock(h.block, &buf); err != nil {
		return fmt.Errorf(
			"reading entry from `%d` at index `%d`: %w",
			h.ino,
			h.offset,
			err,
		)
	}

	var entry DirEntry
	for h.offset < h.records {
		if err := encode.DecodeDirEntry(&entry, &buf, h.offset); err != nil {
			return fmt.Errorf(
				"reading entry from `%d` at index `%d`: %w",
				h.ino,
				h.offset,
				err,
			)
		}
		h.offset++
		if entry.Removed {
			continue
		}
		*out = Entry{Name: entry.Name, Ino: entry.Ino}
		return nil
	}
	return stdio.EOF
}

// List returns every live entry of `parent` in stored order.
func List(dev io.BlockDevice, parent *InodeInfo) ([]Entry, error) {
	var h Handle
	if err := Open(parent, &h); err != nil {
		return nil, fmt.Errorf("listing dir `%d`: %w", parent.Ino, err)
	}

	entries := make([]Entry, 0, h.records)
	for {
		var entry Entry
		if err := ReadNext(dev, &h, &entry); err != nil {
			if err == stdio.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("listing dir `%d`: %w", parent.Ino, err)
		}
		entries = append(entries, entry)
	}
}
