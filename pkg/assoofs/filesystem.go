// Package assoofs is the host-facing side of the filesystem: mounting an
// image, dispatching operations on inode handles, formatting new images, and
// keeping track of mounts.
package assoofs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/weberc2/assoofs/pkg/inode"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/superblock"
	. "github.com/weberc2/assoofs/pkg/types"
)

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// FileSystem is a mounted image. None of its methods lock; callers must
// serialize mutating operations.
type FileSystem struct {
	dev    io.BlockDevice
	sb     SuperblockInfo
	root   *inode.Handle
	state  State
	logger *slog.Logger
	now    func() time.Time
}

// Mount validates the superblock on `dev` and materializes the root inode.
// On failure no filesystem is returned.
func Mount(dev io.BlockDevice, opts Options) (*FileSystem, error) {
	fs := FileSystem{
		dev:    dev,
		state:  StateValidating,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if fs.logger == nil {
		fs.logger = slog.Default()
	}
	if fs.now == nil {
		fs.now = time.Now
	}

	sb, err := superblock.Load(dev)
	if err != nil {
		fs.state = StateUnmounted
		return nil, fmt.Errorf("mounting: %w", err)
	}
	fs.sb = sb

	root, err := inode.Materialize(dev, &fs.sb, InoRoot, nil)
	if err != nil {
		fs.state = StateUnmounted
		return nil, fmt.Errorf("mounting: %w", err)
	}
	if !root.IsDir() {
		fs.state = StateUnmounted
		return nil, fmt.Errorf("mounting: root inode: %w", NotADirErr)
	}
	fs.root = root
	fs.state = StateReady

	fs.logger.Info(
		"mounted",
		"inodesCount", fs.sb.InodesCount,
		"version", fs.sb.Version,
	)
	return &fs, nil
}

func (fs *FileSystem) State() State { return fs.state }

// Superblock returns a copy of the session's superblock.
func (fs *FileSystem) Superblock() SuperblockInfo { return fs.sb }

func (fs *FileSystem) Root() *inode.Handle { return fs.root }

// Unmount ends the session. Every later call fails with `NotMountedErr`.
func (fs *FileSystem) Unmount() error {
	if err := fs.ready(); err != nil {
		return fmt.Errorf("unmounting: %w", err)
	}
	fs.state = StateUnmounted
	fs.root = nil
	fs.logger.Info("unmounted")
	return nil
}

func (fs *FileSystem) ready() error {
	if fs.state != StateReady {
		return NotMountedErr
	}
	return nil
}
