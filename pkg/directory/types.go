// Package directory resolves names within a directory's single data block.
// A directory block is an array of fixed-size records; the first
// `DirRecordsCount` of them have been written, and removed records are left
// in place as tombstones.
package directory

import (
	"github.com/weberc2/assoofs/pkg/encode"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Capacity is the number of records a directory block can hold.
const Capacity = encode.DirEntriesPerBlock

// Entry is a live child of a directory.
type Entry struct {
	Name string `json:"name"`
	Ino  Ino    `json:"ino"`
}

// ValidateName checks that `name` can be stored in a directory record.
func ValidateName(name string) error {
	if len(name) > FilenameMaxLen {
		return NameTooLongErr
	}
	if name == "" {
		return InvalidNameErr
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 || name[i] == '/' {
			return InvalidNameErr
		}
	}
	return nil
}

func records(parent *InodeInfo) int {
	if parent.DirRecordsCount > uint64(Capacity) {
		return Capacity
	}
	return int(parent.DirRecordsCount)
}
