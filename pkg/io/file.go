package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/assoofs/pkg/types"
)

type FileVolume struct {
	file *os.File
}

// OpenFileVolume opens the image at `path` for reading and writing. If
// `create` is set, a missing image is created and sized to `size` bytes.
func OpenFileVolume(path string, create bool, size Byte) (*FileVolume, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	if create {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening image `%s`: %w", path, err)
		}
		if Byte(info.Size()) < size {
			if err := file.Truncate(int64(size)); err != nil {
				file.Close()
				return nil, fmt.Errorf(
					"opening image `%s`: truncating to `%d` bytes: %w",
					path,
					size,
					err,
				)
			}
		}
	}
	return &FileVolume{file: file}, nil
}

func (volume *FileVolume) ReadAt(offset Byte, buffer []byte) error {
	if _, err := volume.file.ReadAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"reading file `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (volume *FileVolume) WriteAt(offset Byte, buffer []byte) error {
	if _, err := volume.file.WriteAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing file `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (volume *FileVolume) Sync() error {
	if err := volume.file.Sync(); err != nil {
		return fmt.Errorf("syncing file `%s`: %w", volume.file.Name(), err)
	}
	return nil
}

func (volume *FileVolume) Close() error {
	if err := volume.file.Close(); err != nil {
		return fmt.Errorf("closing file `%s`: %w", volume.file.Name(), err)
	}
	return nil
}
