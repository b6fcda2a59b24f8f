package encode

import (
	"bytes"
	"fmt"

	. "github.com/weberc2/assoofs/pkg/types"
)

// DirEntriesPerBlock is the number of records a directory's data block can
// hold.
const DirEntriesPerBlock = int(BlockSize / DirEntrySize)

func EncodeDirEntry(entry *DirEntry, b *[BlockSize]byte, i int) error {
	if len(entry.Name) > FilenameMaxLen {
		return fmt.Errorf("encoding dir entry `%s`: %w", entry.Name, NameTooLongErr)
	}
	start, end, ok := recordBounds(i, DirEntrySize)
	if !ok {
		return fmt.Errorf("encoding dir entry `%s` at index `%d`: %w", entry.Name, i, OutOfBoundsErr)
	}
	p := b[start:end]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	for j := range name {
		name[j] = 0
	}
	copy(name, entry.Name)

	var removed uint8
	if entry.Removed {
		removed = 1
	}
	putU8(p, dirEntryRemovedStart, removed)
	putIno(p, dirEntryInoStart, entry.Ino)
	return nil
}

// DecodeDirEntry copies the `i`th record of a directory block into `entry`.
// The name is copied out of `b`, so `entry` doesn't alias the block.
func DecodeDirEntry(entry *DirEntry, b *[BlockSize]byte, i int) error {
	start, end, ok := recordBounds(i, DirEntrySize)
	if !ok {
		return fmt.Errorf("decoding dir entry at index `%d`: %w", i, OutOfBoundsErr)
	}
	p := b[start:end]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	*entry = DirEntry{
		Name:    string(name),
		Removed: getU8(p, dirEntryRemovedStart) != 0,
		Ino:     getIno(p, dirEntryInoStart),
	}
	return nil
}

// SetDirEntryRemoved flips only the tombstone flag of the `i`th record.
func SetDirEntryRemoved(b *[BlockSize]byte, i int) error {
	start, _, ok := recordBounds(i, DirEntrySize)
	if !ok {
		return fmt.Errorf("removing dir entry at index `%d`: %w", i, OutOfBoundsErr)
	}
	putU8(b[:], start+dirEntryRemovedStart, 1)
	return nil
}

const (
	dirEntryNameStart = 0
	dirEntryNameSize  = FilenameMaxLen
	dirEntryNameEnd   = dirEntryNameStart + dirEntryNameSize

	dirEntryRemovedStart = dirEntryNameEnd
	dirEntryRemovedSize  = 1
	dirEntryRemovedEnd   = dirEntryRemovedStart + dirEntryRemovedSize

	dirEntryInoStart = dirEntryRemovedEnd
	dirEntryInoSize  = 8
	dirEntryInoEnd   = dirEntryInoStart + dirEntryInoSize

	DirEntrySize Byte = dirEntryInoEnd
)
