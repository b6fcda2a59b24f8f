// Package table implements the inode store: a single block holding a dense
// array of `InodeInfo` records, of which the first `InodesCount` are live.
package table

import (
	"errors"
	"fmt"

	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/math"
	"github.com/weberc2/assoofs/pkg/superblock"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Capacity is the number of records the inode store block can hold.
const Capacity = encode.InodesPerBlock

// Find returns a copy of the record numbered `ino`. The scan never looks past
// the first `sb.InodesCount` records.
func Find(dev io.BlockDevice, sb *SuperblockInfo, ino Ino) (InodeInfo, error) {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(InodeStoreBlock, &buf); err != nil {
		return InodeInfo{}, fmt.Errorf("finding inode `%d`: %w", ino, err)
	}
	info, _, err := scan(&buf, sb, ino)
	if err != nil {
		return InodeInfo{}, fmt.Errorf("finding inode `%d`: %w", ino, err)
	}
	return info, nil
}

// Insert appends `info` at the first unused slot and bumps the superblock's
// inode count. The table block is written before the superblock so that a
// failed superblock write leaves the new record beyond the scan bound; `sb`
// is only updated once both writes succeed.
func Insert(dev io.BlockDevice, sb *SuperblockInfo, info *InodeInfo) error {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(InodeStoreBlock, &buf); err != nil {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, err)
	}

	if _, _, err := scan(&buf, sb, info.Ino); err == nil {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, InoExistsErr)
	} else if !errors.Is(err, NotFoundErr) {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, err)
	}

	slot := sb.InodesCount
	if slot >= uint64(Capacity) {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, TableFullErr)
	}
	if err := encode.EncodeInodeInfo(info, &buf, int(slot)); err != nil {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, err)
	}
	if err := dev.WriteBlock(InodeStoreBlock, &buf); err != nil {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, err)
	}

	updated := *sb
	updated.InodesCount++
	if err := superblock.Store(dev, &updated); err != nil {
		return fmt.Errorf("inserting inode `%d`: %w", info.Ino, err)
	}
	*sb = updated
	return nil
}

// Update overwrites the live record whose ino matches `info.Ino`.
func Update(dev io.BlockDevice, sb *SuperblockInfo, info *InodeInfo) error {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(InodeStoreBlock, &buf); err != nil {
		return fmt.Errorf("updating inode `%d`: %w", info.Ino, err)
	}
	_, slot, err := scan(&buf, sb, info.Ino)
	if err != nil {
		return fmt.Errorf("updating inode `%d`: %w", info.Ino, err)
	}
	if err := encode.EncodeInodeInfo(info, &buf, slot); err != nil {
		return fmt.Errorf("updating inode `%d`: %w", info.Ino, err)
	}
	if err := dev.WriteBlock(InodeStoreBlock, &buf); err != nil {
		return fmt.Errorf("updating inode `%d`: %w", info.Ino, err)
	}
	return nil
}

// List returns every live record in slot order.
func List(dev io.BlockDevice, sb *SuperblockInfo) ([]InodeInfo, error) {
	var buf [BlockSize]byte
	if err := dev.ReadBlock(InodeStoreBlock, &buf); err != nil {
		return nil, fmt.Errorf("listing inodes: %w", err)
	}
	n := bound(sb)
	out := make([]InodeInfo, n)
	for i := 0; i < n; i++ {
		if err := encode.DecodeInodeInfo(&out[i], &buf, i); err != nil {
			return nil, fmt.Errorf("listing inodes: %w", err)
		}
	}
	return out, nil
}

// NextIno returns one past the highest live ino. Inos are never reused.
func NextIno(dev io.BlockDevice, sb *SuperblockInfo) (Ino, error) {
	infos, err := List(dev, sb)
	if err != nil {
		return InoNil, fmt.Errorf("choosing next ino: %w", err)
	}
	next := InoRoot + 1
	for i := range infos {
		if infos[i].Ino >= next {
			next = infos[i].Ino + 1
		}
	}
	return next, nil
}

func scan(buf *[BlockSize]byte, sb *SuperblockInfo, ino Ino) (InodeInfo, int, error) {
	var info InodeInfo
	for i, n := 0, bound(sb); i < n; i++ {
		if err := encode.DecodeInodeInfo(&info, buf, i); err != nil {
			return InodeInfo{}, 0, err
		}
		if info.Ino == ino {
			return info, i, nil
		}
	}
	return InodeInfo{}, 0, NotFoundErr
}

func bound(sb *SuperblockInfo) int {
	return int(math.Min(sb.InodesCount, uint64(Capacity)))
}
