package io

import (
	. "github.com/weberc2/assoofs/pkg/types"
)

// VolumeDevice adapts a byte-addressed volume into a block device.
type VolumeDevice struct {
	Volume Volume
}

func NewVolumeDevice(volume Volume) *VolumeDevice {
	return &VolumeDevice{Volume: volume}
}

// NewMemoryDevice returns a zeroed in-memory device of `blocks` blocks.
func NewMemoryDevice(blocks Block) *VolumeDevice {
	return &VolumeDevice{
		Volume: NewBuffer(make([]byte, Byte(blocks)*BlockSize)),
	}
}

func (d *VolumeDevice) ReadBlock(b Block, p *[BlockSize]byte) error {
	if err := d.Volume.ReadAt(b.Offset(), p[:]); err != nil {
		return &IOErr{Op: "reading", Block: b, Err: err}
	}
	return nil
}

func (d *VolumeDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	if err := d.Volume.WriteAt(b.Offset(), p[:]); err != nil {
		return &IOErr{Op: "writing", Block: b, Err: err}
	}
	return nil
}
