package assoofs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/weberc2/assoofs/pkg/alloc"
	"github.com/weberc2/assoofs/pkg/directory"
	"github.com/weberc2/assoofs/pkg/encode"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/log"
	"github.com/weberc2/assoofs/pkg/superblock"
	. "github.com/weberc2/assoofs/pkg/types"
)

var epoch = time.Date(2020, 4, 6, 0, 0, 0, 0, time.UTC)

// countingDevice counts writes to the device it wraps.
type countingDevice struct {
	io.BlockDevice
	writes int
}

func (d *countingDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	d.writes++
	return d.BlockDevice.WriteBlock(b, p)
}

// failingDevice fails every write to `block` once `armed` is set.
type failingDevice struct {
	io.BlockDevice
	block Block
	armed bool
}

func (d *failingDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	if d.armed && b == d.block {
		return &IOErr{Op: "write", Block: b, Err: errors.New("injected")}
	}
	return d.BlockDevice.WriteBlock(b, p)
}

func formatted(t *testing.T, blocks Block) *countingDevice {
	dev := &countingDevice{BlockDevice: io.NewMemoryDevice(blocks)}
	if err := Format(dev, FormatOptions{Blocks: blocks}); err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	dev.writes = 0
	return dev
}

func mount(t *testing.T, dev io.BlockDevice) *FileSystem {
	fs, err := Mount(dev, Options{
		Logger: log.Discard(),
		Now:    func() time.Time { return epoch },
	})
	if err != nil {
		t.Fatalf("Mount(): unexpected err: %v", err)
	}
	return fs
}

func TestMount(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	if fs.State() != StateReady {
		t.Fatalf("State(): wanted `Ready`; found `%s`", fs.State())
	}
	root := fs.Root()
	if root.Ino() != InoRoot || !root.IsDir() || root.Owner != nil {
		t.Fatalf("Root(): unexpected handle `%+v`", root)
	}
	if root.Info.DataBlock != RootDirDataBlock {
		t.Fatalf(
			"Root(): wanted data block `%d`; found `%d`",
			RootDirDataBlock,
			root.Info.DataBlock,
		)
	}
	if sb := fs.Superblock(); sb.InodesCount != 1 {
		t.Fatalf("InodesCount: wanted `1`; found `%d`", sb.InodesCount)
	}
}

func TestMount_Invalid(t *testing.T) {
	type testCase struct {
		name         string
		superblock   SuperblockInfo
		wantedReason error
	}

	for _, tc := range []testCase{{
		name: "bad magic",
		superblock: SuperblockInfo{
			Magic:     0xdeadbeef,
			BlockSize: uint32(BlockSize),
		},
		wantedReason: InvalidMagicErr,
	}, {
		name: "bad block size",
		superblock: SuperblockInfo{
			Magic:     Magic,
			BlockSize: 512,
		},
		wantedReason: InvalidBlockSizeErr,
	}, {
		name:         "zeroed device",
		wantedReason: InvalidMagicErr,
	}} {
		t.Run(tc.name, func(t *testing.T) {
			dev := io.NewMemoryDevice(4)
			var buf [BlockSize]byte
			encode.EncodeSuperblock(&tc.superblock, &buf)
			if err := dev.WriteBlock(SuperblockBlock, &buf); err != nil {
				t.Fatalf("writing superblock: %v", err)
			}

			fs, err := Mount(dev, Options{Logger: log.Discard()})
			if fs != nil {
				t.Fatalf("Mount(): wanted no filesystem; found `%+v`", fs)
			}
			var validationErr *superblock.ValidationErr
			if !errors.As(err, &validationErr) {
				t.Fatalf("Mount(): wanted `*ValidationErr`; found `%v`", err)
			}
			if !errors.Is(err, tc.wantedReason) {
				t.Fatalf(
					"Mount(): wanted `%v`; found `%v`",
					tc.wantedReason,
					err,
				)
			}
		})
	}
}

func TestCreateAndWalk(t *testing.T) {
	dev := formatted(t, 8)
	fs := mount(t, dev)

	dir, err := fs.Mkdir(fs.Root(), "docs", 0o750)
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	if !dir.IsDir() || dir.Owner != fs.Root() || !dir.CTime.Equal(epoch) {
		t.Fatalf("Mkdir(): unexpected handle `%+v`", dir)
	}
	if dir.Info.Mode.Perm() != 0o750 {
		t.Fatalf("Mkdir(): wanted perm `0750`; found `%o`", dir.Info.Mode.Perm())
	}

	file, err := fs.Create(dir, "a.txt", 0o644)
	if err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
	if file.IsDir() {
		t.Fatalf("Create(): wanted regular file; found `%+v`", file)
	}

	found, err := fs.Walk("/docs/a.txt")
	if err != nil {
		t.Fatalf("Walk(): unexpected err: %v", err)
	}
	if found.Info != file.Info {
		t.Fatalf("Walk(): wanted `%+v`; found `%+v`", file.Info, found.Info)
	}
	if found.Owner == nil || found.Owner.Ino() != dir.Ino() {
		t.Fatalf("Walk(): wanted owner `%d`; found `%+v`", dir.Ino(), found.Owner)
	}

	for _, path := range []string{"/", "//", "/./docs/."} {
		h, err := fs.Walk(path)
		if err != nil {
			t.Fatalf("Walk(`%s`): unexpected err: %v", path, err)
		}
		if path == "/./docs/." {
			if h.Ino() != dir.Ino() {
				t.Fatalf("Walk(`%s`): wanted `%d`; found `%d`", path, dir.Ino(), h.Ino())
			}
		} else if h.Ino() != InoRoot {
			t.Fatalf("Walk(`%s`): wanted root; found `%d`", path, h.Ino())
		}
	}

	// data blocks are distinct and reserved in the superblock
	free := alloc.Bitfield(fs.Superblock().FreeBlocks)
	if dir.Info.DataBlock == file.Info.DataBlock {
		t.Fatalf("wanted distinct data blocks; found `%d`", dir.Info.DataBlock)
	}
	if free.IsFree(dir.Info.DataBlock) || free.IsFree(file.Info.DataBlock) {
		t.Fatalf("wanted data blocks reserved; found free map `%b`", free)
	}

	entries, err := fs.ListChildren(fs.Root())
	if err != nil {
		t.Fatalf("ListChildren(): unexpected err: %v", err)
	}
	wanted := []directory.Entry{{Name: "docs", Ino: dir.Ino()}}
	wantedData, err := json.Marshal(wanted)
	if err != nil {
		t.Fatalf("marshaling wanted entries: %v", err)
	}
	foundData, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshaling found entries: %v", err)
	}
	if string(wantedData) != string(foundData) {
		t.Fatalf("ListChildren(): wanted `%s`; found `%s`", wantedData, foundData)
	}

	// everything survives a remount
	if err := fs.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}
	remounted := mount(t, dev)
	again, err := remounted.Walk("/docs/a.txt")
	if err != nil {
		t.Fatalf("Walk() after remount: unexpected err: %v", err)
	}
	if again.Info != file.Info {
		t.Fatalf("Walk() after remount: wanted `%+v`; found `%+v`", file.Info, again.Info)
	}
	if !again.CTime.IsZero() {
		t.Fatalf("Walk() after remount: wanted zero ctime; found `%v`", again.CTime)
	}
	if remounted.Superblock() != fs.Superblock() {
		t.Fatalf(
			"wanted superblock `%+v`; found `%+v`",
			fs.Superblock(),
			remounted.Superblock(),
		)
	}
}

func TestCreateEntry_Errors(t *testing.T) {
	type testCase struct {
		name        string
		blocks      Block
		setup       func(t *testing.T, fs *FileSystem) *FileSystem
		parent      string
		entry       string
		wantedError error
	}

	for _, tc := range []testCase{{
		name:   "exists",
		blocks: 8,
		setup: func(t *testing.T, fs *FileSystem) *FileSystem {
			if _, err := fs.Create(fs.Root(), "a", 0o644); err != nil {
				t.Fatalf("Create(): unexpected err: %v", err)
			}
			return fs
		},
		parent:      "/",
		entry:       "a",
		wantedError: ExistsErr,
	}, {
		name:   "parent is a file",
		blocks: 8,
		setup: func(t *testing.T, fs *FileSystem) *FileSystem {
			if _, err := fs.Create(fs.Root(), "a", 0o644); err != nil {
				t.Fatalf("Create(): unexpected err: %v", err)
			}
			return fs
		},
		parent:      "/a",
		entry:       "b",
		wantedError: NotADirErr,
	}, {
		name:        "dot",
		blocks:      8,
		parent:      "/",
		entry:       ".",
		wantedError: InvalidNameErr,
	}, {
		name:        "name too long",
		blocks:      8,
		parent:      "/",
		entry:       string(make([]byte, FilenameMaxLen+1)),
		wantedError: NameTooLongErr,
	}, {
		name:   "out of blocks",
		blocks: 4,
		setup: func(t *testing.T, fs *FileSystem) *FileSystem {
			if _, err := fs.Create(fs.Root(), "a", 0o644); err != nil {
				t.Fatalf("Create(): unexpected err: %v", err)
			}
			return fs
		},
		parent:      "/",
		entry:       "b",
		wantedError: OutOfBlocksErr,
	}, {
		name:   "directory full",
		blocks: MaxBlocks,
		setup: func(t *testing.T, fs *FileSystem) *FileSystem {
			for i := 0; i < directory.Capacity; i++ {
				name := string(rune('a' + i))
				if _, err := fs.Create(fs.Root(), name, 0o644); err != nil {
					t.Fatalf("Create(`%s`): unexpected err: %v", name, err)
				}
			}
			return fs
		},
		parent:      "/",
		entry:       "z",
		wantedError: DirectoryFullErr,
	}, {
		name:   "unmounted",
		blocks: 8,
		setup: func(t *testing.T, fs *FileSystem) *FileSystem {
			root := fs.Root()
			if err := fs.Unmount(); err != nil {
				t.Fatalf("Unmount(): unexpected err: %v", err)
			}
			fs.root = root
			return fs
		},
		parent:      "",
		entry:       "a",
		wantedError: NotMountedErr,
	}} {
		t.Run(tc.name, func(t *testing.T) {
			dev := formatted(t, tc.blocks)
			fs := mount(t, dev)
			if tc.setup != nil {
				fs = tc.setup(t, fs)
			}

			parent := fs.root
			if tc.parent != "" {
				var err error
				if parent, err = fs.Walk(tc.parent); err != nil {
					t.Fatalf("Walk(): unexpected err: %v", err)
				}
			}
			sb := fs.Superblock()
			info := parent.Info
			dev.writes = 0

			_, err := fs.Create(parent, tc.entry, 0o644)
			if !errors.Is(err, tc.wantedError) {
				t.Fatalf("Create(): wanted `%v`; found `%v`", tc.wantedError, err)
			}
			if dev.writes != 0 {
				t.Fatalf("Create(): wanted no writes; found `%d`", dev.writes)
			}
			if fs.sb != sb {
				t.Fatalf("superblock: wanted `%+v`; found `%+v`", sb, fs.sb)
			}
			if parent.Info.ChildrenCount != info.ChildrenCount {
				t.Fatalf(
					"ChildrenCount: wanted `%d`; found `%d`",
					info.ChildrenCount,
					parent.Info.ChildrenCount,
				)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	dir, err := fs.Mkdir(fs.Root(), "d", 0o755)
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	if _, err := fs.Create(dir, "f", 0o644); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}

	if err := fs.Remove(fs.Root(), "d"); !errors.Is(err, DirNotEmptyErr) {
		t.Fatalf("Remove(): wanted `DirNotEmptyErr`; found `%v`", err)
	}
	if err := fs.Remove(dir, "f"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}
	if _, err := fs.Walk("/d/f"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Walk(): wanted `NotFoundErr`; found `%v`", err)
	}
	if err := fs.Remove(fs.Root(), "d"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}
	if err := fs.Remove(fs.Root(), "d"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Remove(): wanted `NotFoundErr`; found `%v`", err)
	}
	if fs.Root().Info.ChildrenCount != 0 {
		t.Fatalf(
			"ChildrenCount: wanted `0`; found `%d`",
			fs.Root().Info.ChildrenCount,
		)
	}
}

func TestStaleHandles(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	stale, err := fs.Get(InoRoot)
	if err != nil {
		t.Fatalf("Get(): unexpected err: %v", err)
	}
	other, err := fs.Walk("/")
	if err != nil {
		t.Fatalf("Walk(): unexpected err: %v", err)
	}
	copied := *other

	// creating through one handle must not let another overwrite the entry
	if _, err := fs.Create(stale, "a", 0o644); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
	if _, err := fs.Create(&copied, "b", 0o644); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
	for _, path := range []string{"/a", "/b"} {
		if _, err := fs.Walk(path); err != nil {
			t.Fatalf("Walk(`%s`): unexpected err: %v", path, err)
		}
	}
}

func TestCreateEntry_LinkFails(t *testing.T) {
	dev := &failingDevice{
		BlockDevice: formatted(t, 8),
		block:       RootDirDataBlock,
	}
	fs := mount(t, dev)
	before := fs.Superblock()

	dev.armed = true
	_, err := fs.Create(fs.Root(), "a.txt", 0o644)
	var ioErr *IOErr
	if !errors.As(err, &ioErr) || ioErr.Block != RootDirDataBlock {
		t.Fatalf("Create(): wanted `*IOErr` on block 2; found `%v`", err)
	}
	dev.armed = false

	if after := fs.Superblock(); after != before {
		t.Fatalf("Superblock(): wanted `%+v`; found `%+v`", before, after)
	}
	stored, err := superblock.Load(dev)
	if err != nil {
		t.Fatalf("superblock.Load(): unexpected err: %v", err)
	}
	if stored != before {
		t.Fatalf("superblock.Load(): wanted `%+v`; found `%+v`", before, stored)
	}
	infos, err := fs.Inodes()
	if err != nil {
		t.Fatalf("Inodes(): unexpected err: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Inodes(): wanted only the root; found `%+v`", infos)
	}
	if _, err := fs.Get(2); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Get(2): wanted `NotFoundErr`; found `%v`", err)
	}

	// the released inode number and block are handed out again
	h, err := fs.Create(fs.Root(), "a.txt", 0o644)
	if err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
	if h.Ino() != 2 || h.Info.DataBlock != 3 {
		t.Fatalf("Create(): wanted ino `2` block `3`; found `%+v`", h.Info)
	}
}

func TestGet_Unlinked(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	dir, err := fs.Mkdir(fs.Root(), "d", 0o755)
	if err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	if err := fs.Remove(fs.Root(), "d"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}
	if _, err := fs.Walk("/d"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Walk(): wanted `NotFoundErr`; found `%v`", err)
	}

	// lookup by number does not check reachability; the record stays in
	// the table after unlink
	h, err := fs.Get(dir.Ino())
	if err != nil {
		t.Fatalf("Get(): unexpected err: %v", err)
	}
	if !h.IsDir() || h.Owner != nil {
		t.Fatalf("Get(): unexpected handle `%+v`", h)
	}
}

func TestWalk_Errors(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	if _, err := fs.Walk("docs"); !errors.Is(err, NotAbsolutePathErr) {
		t.Fatalf("Walk(): wanted `NotAbsolutePathErr`; found `%v`", err)
	}
	if _, err := fs.Walk("/missing"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Walk(): wanted `NotFoundErr`; found `%v`", err)
	}
	if _, err := fs.Create(fs.Root(), "f", 0o644); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
	if _, err := fs.Walk("/f/g"); !errors.Is(err, NotADirErr) {
		t.Fatalf("Walk(): wanted `NotADirErr`; found `%v`", err)
	}
}

func TestUnmount(t *testing.T) {
	fs := mount(t, formatted(t, 8))
	if err := fs.Unmount(); err != nil {
		t.Fatalf("Unmount(): unexpected err: %v", err)
	}
	if fs.State() != StateUnmounted {
		t.Fatalf("State(): wanted `Unmounted`; found `%s`", fs.State())
	}
	if err := fs.Unmount(); !errors.Is(err, NotMountedErr) {
		t.Fatalf("Unmount(): wanted `NotMountedErr`; found `%v`", err)
	}
	if _, err := fs.Walk("/"); !errors.Is(err, NotMountedErr) {
		t.Fatalf("Walk(): wanted `NotMountedErr`; found `%v`", err)
	}
	if _, err := fs.Inodes(); !errors.Is(err, NotMountedErr) {
		t.Fatalf("Inodes(): wanted `NotMountedErr`; found `%v`", err)
	}
}

func TestFormat(t *testing.T) {
	dev := io.NewMemoryDevice(6)
	if err := Format(dev, FormatOptions{Blocks: 6}); err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	sb, err := superblock.Load(dev)
	if err != nil {
		t.Fatalf("superblock.Load(): unexpected err: %v", err)
	}
	free := alloc.Bitfield(sb.FreeBlocks)
	if free.FreeCount() != 3 || !free.IsFree(3) || free.IsFree(2) {
		t.Fatalf("wanted blocks 3-5 free; found `%b`", free)
	}

	fs := mount(t, dev)
	infos, err := fs.Inodes()
	if err != nil {
		t.Fatalf("Inodes(): unexpected err: %v", err)
	}
	if len(infos) != 1 || infos[0].Ino != InoRoot || !infos[0].IsDir() {
		t.Fatalf("Inodes(): wanted only the root; found `%+v`", infos)
	}

	if err := Format(
		io.NewMemoryDevice(2),
		FormatOptions{Blocks: 2},
	); !errors.Is(err, OutOfBlocksErr) {
		t.Fatalf("Format(): wanted `OutOfBlocksErr`; found `%v`", err)
	}
}
