package types

import (
	"fmt"
)

type Ino uint64

const (
	InoNil  Ino = 0
	InoRoot Ino = 1
)

type InodeInfo struct {
	Ino             Ino
	Mode            Mode
	DataBlock       Block
	FileSize        Byte
	ChildrenCount   uint64
	DirRecordsCount uint64
}

func (info *InodeInfo) IsDir() bool { return info.Mode.Type() == FileTypeDir }

type Mode uint32

const (
	ModeTypeMask Mode = 0o170000
	ModeDir      Mode = 0o040000
	ModeRegular  Mode = 0o100000
	ModePerm     Mode = 0o7777
)

func NewMode(fileType FileType, perm Mode) Mode {
	switch fileType {
	case FileTypeDir:
		return ModeDir | perm&ModePerm
	case FileTypeRegular:
		return ModeRegular | perm&ModePerm
	default:
		panic(fmt.Sprintf("invalid file type: `%d`", fileType))
	}
}

// Type derives the file type from the type bits. Anything that isn't a
// directory is treated as a regular file.
func (m Mode) Type() FileType {
	if m&ModeTypeMask == ModeDir {
		return FileTypeDir
	}
	return FileTypeRegular
}

func (m Mode) Perm() Mode { return m & ModePerm }

type FileType uint8

const (
	FileTypeInvalid FileType = iota
	FileTypeRegular
	FileTypeDir
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeInvalid:
		return "Invalid"
	case FileTypeRegular:
		return "Regular"
	case FileTypeDir:
		return "Dir"
	default:
		panic(fmt.Sprintf("invalid file type: `%d`", ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) Validate() error {
	if ft <= FileTypeInvalid || ft > FileTypeDir {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}

const (
	InvalidFileTypeErr ConstError = "invalid file type"
)
