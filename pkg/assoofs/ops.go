package assoofs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weberc2/assoofs/pkg/alloc"
	"github.com/weberc2/assoofs/pkg/directory"
	"github.com/weberc2/assoofs/pkg/inode"
	"github.com/weberc2/assoofs/pkg/inode/table"
	"github.com/weberc2/assoofs/pkg/superblock"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Get materializes the inode numbered `ino` without an owner.
func (fs *FileSystem) Get(ino Ino) (*inode.Handle, error) {
	if err := fs.ready(); err != nil {
		return nil, fmt.Errorf("getting inode `%d`: %w", ino, err)
	}
	if ino == InoRoot {
		return fs.root, nil
	}
	h, err := inode.Materialize(fs.dev, &fs.sb, ino, nil)
	if err != nil {
		return nil, fmt.Errorf("getting inode `%d`: %w", ino, err)
	}
	return h, nil
}

// Lookup resolves `name` in `parent`. The empty name and "." resolve to
// `parent` itself.
func (fs *FileSystem) Lookup(
	parent *inode.Handle,
	name string,
) (*inode.Handle, error) {
	if err := fs.dirOp(parent, inode.OpLookup); err != nil {
		return nil, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	if name == "" || name == "." {
		return parent, nil
	}
	if err := fs.refresh(parent); err != nil {
		return nil, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	ino, err := directory.Lookup(fs.dev, &parent.Info, name)
	if err != nil {
		return nil, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	h, err := inode.Materialize(fs.dev, &fs.sb, ino, parent)
	if err != nil {
		return nil, fmt.Errorf("looking up `%s`: %w", name, err)
	}
	return h, nil
}

// Create makes an empty regular file named `name` in `parent`.
func (fs *FileSystem) Create(
	parent *inode.Handle,
	name string,
	perm Mode,
) (*inode.Handle, error) {
	return fs.CreateEntry(parent, name, NewMode(FileTypeRegular, perm))
}

// Mkdir makes an empty directory named `name` in `parent`.
func (fs *FileSystem) Mkdir(
	parent *inode.Handle,
	name string,
	perm Mode,
) (*inode.Handle, error) {
	return fs.CreateEntry(parent, name, NewMode(FileTypeDir, perm))
}

// CreateEntry allocates an inode and a data block for a new child of
// `parent` and links it under `name`. Every capacity and naming check runs
// before the first write.
func (fs *FileSystem) CreateEntry(
	parent *inode.Handle,
	name string,
	mode Mode,
) (*inode.Handle, error) {
	op := inode.OpCreate
	if mode.Type() == FileTypeDir {
		op = inode.OpMkdir
	}
	h, err := fs.createEntry(parent, name, mode, op)
	if err != nil {
		return nil, fmt.Errorf("%s `%s`: %w", op, name, err)
	}
	return h, nil
}

func (fs *FileSystem) createEntry(
	parent *inode.Handle,
	name string,
	mode Mode,
	op inode.Op,
) (*inode.Handle, error) {
	if err := fs.dirOp(parent, op); err != nil {
		return nil, err
	}
	if err := directory.ValidateName(name); err != nil {
		return nil, err
	}
	if name == "." || name == ".." {
		return nil, InvalidNameErr
	}
	if err := fs.refresh(parent); err != nil {
		return nil, err
	}
	if _, err := directory.Lookup(
		fs.dev,
		&parent.Info,
		name,
	); err == nil {
		return nil, ExistsErr
	} else if !errors.Is(err, NotFoundErr) {
		return nil, err
	}
	if parent.Info.DirRecordsCount >= uint64(directory.Capacity) {
		return nil, DirectoryFullErr
	}
	if fs.sb.InodesCount >= uint64(table.Capacity) {
		return nil, TableFullErr
	}
	free := alloc.Bitfield(fs.sb.FreeBlocks)
	block, ok := free.Alloc()
	if !ok {
		return nil, OutOfBlocksErr
	}
	ino, err := table.NextIno(fs.dev, &fs.sb)
	if err != nil {
		return nil, err
	}

	var zero [BlockSize]byte
	if err := fs.dev.WriteBlock(block, &zero); err != nil {
		return nil, err
	}

	// the block reservation is persisted by the same superblock write that
	// publishes the new inode
	info := InodeInfo{Ino: ino, Mode: mode, DataBlock: block}
	prev := fs.sb
	sb := fs.sb
	sb.FreeBlocks = uint64(free)
	if err := table.Insert(fs.dev, &sb, &info); err != nil {
		return nil, err
	}
	fs.sb = sb

	if err := directory.InsertEntry(
		fs.dev,
		&fs.sb,
		&parent.Info,
		name,
		ino,
	); err != nil {
		// the unlinked record falls beyond the scan bound once the old
		// superblock is back, and its block is free again
		if rerr := superblock.Store(fs.dev, &prev); rerr != nil {
			return nil, errors.Join(
				err,
				fmt.Errorf("rolling back inode `%d`: %w", ino, rerr),
			)
		}
		fs.sb = prev
		return nil, err
	}

	fs.logger.Debug(
		"created entry",
		"parent", parent.Info.Ino,
		"name", name,
		"ino", ino,
		"block", block,
		"kind", inode.KindOf(mode).String(),
	)
	return inode.New(&fs.sb, &info, parent, fs.now()), nil
}

// Remove unlinks `name` from `parent`. Directories must be empty.
func (fs *FileSystem) Remove(parent *inode.Handle, name string) error {
	if err := fs.remove(parent, name); err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	return nil
}

func (fs *FileSystem) remove(parent *inode.Handle, name string) error {
	if err := fs.dirOp(parent, inode.OpUnlink); err != nil {
		return err
	}
	if name == "" || name == "." || name == ".." {
		return InvalidNameErr
	}
	if err := fs.refresh(parent); err != nil {
		return err
	}
	ino, err := directory.Lookup(fs.dev, &parent.Info, name)
	if err != nil {
		return err
	}
	child, err := inode.Materialize(fs.dev, &fs.sb, ino, parent)
	if err != nil {
		return err
	}
	if child.IsDir() && child.Info.ChildrenCount > 0 {
		return DirNotEmptyErr
	}
	if _, err := directory.RemoveEntry(
		fs.dev,
		&fs.sb,
		&parent.Info,
		name,
	); err != nil {
		return err
	}
	fs.logger.Debug(
		"removed entry",
		"parent", parent.Info.Ino,
		"name", name,
		"ino", ino,
	)
	return nil
}

// ListChildren returns the live entries of `dir` in stored order.
func (fs *FileSystem) ListChildren(dir *inode.Handle) ([]directory.Entry, error) {
	if err := fs.dirOp(dir, inode.OpIterate); err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	if err := fs.refresh(dir); err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	entries, err := directory.List(fs.dev, &dir.Info)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	return entries, nil
}

// Walk resolves an absolute, `/`-separated path from the root.
func (fs *FileSystem) Walk(path string) (*inode.Handle, error) {
	if err := fs.ready(); err != nil {
		return nil, fmt.Errorf("walking `%s`: %w", path, err)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("walking `%s`: %w", path, NotAbsolutePathErr)
	}
	h := fs.root
	for _, name := range strings.Split(path, "/") {
		next, err := fs.Lookup(h, name)
		if err != nil {
			return nil, fmt.Errorf("walking `%s`: %w", path, err)
		}
		h = next
	}
	return h, nil
}

// Inodes returns every record of the inode table.
func (fs *FileSystem) Inodes() ([]InodeInfo, error) {
	if err := fs.ready(); err != nil {
		return nil, fmt.Errorf("listing inodes: %w", err)
	}
	infos, err := table.List(fs.dev, &fs.sb)
	if err != nil {
		return nil, fmt.Errorf("listing inodes: %w", err)
	}
	return infos, nil
}

func (fs *FileSystem) dirOp(h *inode.Handle, op inode.Op) error {
	if err := fs.ready(); err != nil {
		return err
	}
	if !h.Kind.Supports(op) {
		return fmt.Errorf("inode `%d`: %w", h.Info.Ino, NotADirErr)
	}
	return nil
}

// refresh reloads a handle's record; another handle for the same inode may
// have changed its counters.
func (fs *FileSystem) refresh(h *inode.Handle) error {
	info, err := table.Find(fs.dev, &fs.sb, h.Info.Ino)
	if err != nil {
		return err
	}
	h.Info = info
	return nil
}
