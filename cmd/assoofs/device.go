package main

import (
	"fmt"
	"path"

	"github.com/gosimple/slug"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/objectstore"
	"github.com/weberc2/assoofs/pkg/pgdevice"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Device is an opened block device plus whatever must be released when
// the command finishes.
type Device struct {
	io.BlockDevice
	Source string
	raw    io.BlockDevice
	close  func() error
}

func (d *Device) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// wiper is implemented by devices that can discard every stored block.
type wiper interface {
	Wipe() error
}

// OpenDevice opens the configured backend. `create` allows a file image to
// be created with room for `blocks` blocks.
func (c *Config) OpenDevice(create bool, blocks Block) (*Device, error) {
	d, err := c.openDevice(create, blocks)
	if err != nil {
		return nil, fmt.Errorf("opening `%s` device: %w", c.Device, err)
	}
	d.raw = d.BlockDevice
	if c.CacheCapacity != nil && *c.CacheCapacity > 0 {
		d.BlockDevice = io.NewCachingDevice(d.BlockDevice, *c.CacheCapacity)
	}
	return d, nil
}

func (c *Config) openDevice(create bool, blocks Block) (*Device, error) {
	switch c.Device {
	case DeviceMemory:
		return &Device{
			BlockDevice: io.NewMemoryDevice(MaxBlocks),
			Source:      "memory",
		}, nil
	case DeviceFile:
		size := Byte(c.Offset) + Byte(blocks)*BlockSize
		volume, err := io.OpenFileVolume(c.Image, create, size)
		if err != nil {
			return nil, err
		}
		var v io.Volume = volume
		if c.Offset > 0 {
			v = io.NewOffsetVolume(volume, Byte(c.Offset))
		}
		return &Device{
			BlockDevice: io.NewVolumeDevice(v),
			Source:      c.Image,
			close: func() error {
				if err := volume.Sync(); err != nil {
					volume.Close()
					return err
				}
				return volume.Close()
			},
		}, nil
	case DeviceS3:
		s3, err := objectstore.NewS3ObjectStore(c.S3Region)
		if err != nil {
			return nil, err
		}
		var store ObjectStore = s3
		if c.Gzip {
			store = &objectstore.GzipObjectStore{ObjectStore: store}
		}
		dev := objectstore.NewDevice(store, c.S3Bucket, c.Image)
		if c.S3Prefix != "" {
			dev.Prefix = path.Join(slug.Make(c.S3Prefix), dev.Prefix)
		}
		return &Device{
			BlockDevice: dev,
			Source:      fmt.Sprintf("s3://%s/%s", c.S3Bucket, dev.Prefix),
		}, nil
	case DevicePostgres:
		db, err := pgdevice.OpenEnv()
		if err != nil {
			return nil, err
		}
		dev := pgdevice.New(db, c.PGTable, c.Image)
		if err := dev.EnsureTable(); err != nil {
			db.Close()
			return nil, err
		}
		return &Device{
			BlockDevice: dev,
			Source:      fmt.Sprintf("postgres:%s/%s", c.PGTable, dev.Image),
			close:       db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported device `%s`", c.Device)
	}
}

// Wipe discards any blocks a remote backend is holding for the image. It is
// a no-op for file and memory devices.
func (d *Device) Wipe() error {
	if w, ok := d.raw.(wiper); ok {
		return w.Wipe()
	}
	return nil
}
