package inode

import (
	"fmt"

	. "github.com/weberc2/assoofs/pkg/types"
)

// Kind selects the operation table of a handle.
type Kind uint8

const (
	KindRegular Kind = iota
	KindDir
)

// KindOf derives the kind from the type bits of `mode`.
func KindOf(mode Mode) Kind {
	if mode.Type() == FileTypeDir {
		return KindDir
	}
	return KindRegular
}

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "Regular"
	case KindDir:
		return "Dir"
	default:
		panic(fmt.Sprintf("invalid kind: `%d`", k))
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Supports reports whether handles of this kind implement `op`.
func (k Kind) Supports(op Op) bool {
	switch k {
	case KindDir:
		return dirOps&(1<<op) != 0
	case KindRegular:
		return regularOps&(1<<op) != 0
	default:
		return false
	}
}

type Op uint8

const (
	OpLookup Op = iota
	OpCreate
	OpMkdir
	OpUnlink
	OpRmdir
	OpIterate
	OpRead
	OpWrite
)

func (op Op) String() string {
	switch op {
	case OpLookup:
		return "lookup"
	case OpCreate:
		return "create"
	case OpMkdir:
		return "mkdir"
	case OpUnlink:
		return "unlink"
	case OpRmdir:
		return "rmdir"
	case OpIterate:
		return "iterate"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
}

const (
	dirOps = 1<<OpLookup | 1<<OpCreate | 1<<OpMkdir | 1<<OpUnlink |
		1<<OpRmdir | 1<<OpIterate
	regularOps = 1<<OpRead | 1<<OpWrite
)
