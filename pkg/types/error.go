package types

import "fmt"

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	NotFoundErr         ConstError = "not found"
	ExistsErr           ConstError = "entry already exists"
	InoExistsErr        ConstError = "ino already exists"
	TableFullErr        ConstError = "inode table full"
	DirectoryFullErr    ConstError = "directory full"
	NameTooLongErr      ConstError = "name too long"
	InvalidNameErr      ConstError = "invalid name"
	NotADirErr          ConstError = "not a directory"
	DirNotEmptyErr      ConstError = "directory not empty"
	OutOfBlocksErr      ConstError = "out of free blocks"
	InvalidMagicErr     ConstError = "invalid magic"
	InvalidBlockSizeErr ConstError = "invalid block size"
	NotMountedErr       ConstError = "filesystem not mounted"
	NotAbsolutePathErr  ConstError = "path is not absolute"
	TypeExistsErr       ConstError = "filesystem type already registered"
	TypeNotFoundErr     ConstError = "filesystem type not registered"
	MountNotFoundErr    ConstError = "mount not found"
)

// IOErr is returned when the underlying block device fails. It is never
// retried.
type IOErr struct {
	Op    string
	Block Block
	Err   error
}

func (err *IOErr) Error() string {
	return fmt.Sprintf("%s block `%d`: %v", err.Op, err.Block, err.Err)
}

func (err *IOErr) Unwrap() error { return err.Err }
