// Package inode builds the in-memory handles the filesystem session hands
// out. A handle owns a copy of its `InodeInfo` and never aliases a block
// buffer.
package inode

import (
	"fmt"
	"time"

	"github.com/weberc2/assoofs/pkg/inode/table"
	"github.com/weberc2/assoofs/pkg/io"
	. "github.com/weberc2/assoofs/pkg/types"
)

type Handle struct {
	Info       InodeInfo       `json:"info"`
	Kind       Kind            `json:"kind"`
	Owner      *Handle         `json:"-"`
	Superblock *SuperblockInfo `json:"-"`
	ATime      time.Time       `json:"atime"`
	MTime      time.Time       `json:"mtime"`
	CTime      time.Time       `json:"ctime"`
}

// Materialize builds a handle for an existing inode. Timestamps are not
// persisted, so they are left zero.
func Materialize(
	dev io.BlockDevice,
	sb *SuperblockInfo,
	ino Ino,
	owner *Handle,
) (*Handle, error) {
	info, err := table.Find(dev, sb, ino)
	if err != nil {
		return nil, fmt.Errorf("materializing inode `%d`: %w", ino, err)
	}
	return &Handle{
		Info:       info,
		Kind:       KindOf(info.Mode),
		Owner:      owner,
		Superblock: sb,
	}, nil
}

// New builds a handle for an inode that was just created at `now`.
func New(sb *SuperblockInfo, info *InodeInfo, owner *Handle, now time.Time) *Handle {
	return &Handle{
		Info:       *info,
		Kind:       KindOf(info.Mode),
		Owner:      owner,
		Superblock: sb,
		ATime:      now,
		MTime:      now,
		CTime:      now,
	}
}

func (h *Handle) Ino() Ino { return h.Info.Ino }

func (h *Handle) IsDir() bool { return h.Kind == KindDir }
