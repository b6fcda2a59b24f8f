package objectstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Device stores each block as its own object under `Prefix`. Blocks that
// were never written read as zeroes.
type Device struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

// NewDevice normalizes `image` into a key prefix.
func NewDevice(store ObjectStore, bucket, image string) *Device {
	return &Device{Store: store, Bucket: bucket, Prefix: slug.Make(image)}
}

func (d *Device) key(b Block) string {
	return fmt.Sprintf("%s/blocks/%08d", d.Prefix, b)
}

func (d *Device) ReadBlock(b Block, p *[BlockSize]byte) error {
	body, err := d.Store.GetObject(d.Bucket, d.key(b))
	if err != nil {
		var notFound *ObjectNotFoundErr
		if errors.As(err, &notFound) {
			*p = [BlockSize]byte{}
			return nil
		}
		return &IOErr{Op: "reading", Block: b, Err: err}
	}
	defer body.Close()

	if _, err := io.ReadFull(body, p[:]); err != nil {
		return &IOErr{
			Op:    "reading",
			Block: b,
			Err:   fmt.Errorf("reading object `%s`: %w", d.key(b), err),
		}
	}
	return nil
}

func (d *Device) WriteBlock(b Block, p *[BlockSize]byte) error {
	if err := d.Store.PutObject(
		d.Bucket,
		d.key(b),
		bytes.NewReader(p[:]),
	); err != nil {
		return &IOErr{Op: "writing", Block: b, Err: err}
	}
	return nil
}

// Blocks returns the numbers of every block that has been written. Keys are
// zero-padded, so the store's lexical listing order is block order.
func (d *Device) Blocks() ([]Block, error) {
	prefix := d.Prefix + "/blocks/"
	keys, err := d.Store.ListObjects(d.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing blocks of `%s`: %w", d.Prefix, err)
	}
	blocks := make([]Block, 0, len(keys))
	for _, key := range keys {
		n, err := strconv.ParseUint(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		blocks = append(blocks, Block(n))
	}
	return blocks, nil
}

// Wipe deletes every written block so the image reads as zeroes.
func (d *Device) Wipe() error {
	blocks, err := d.Blocks()
	if err != nil {
		return fmt.Errorf("wiping `%s`: %w", d.Prefix, err)
	}
	for _, b := range blocks {
		if err := d.Store.DeleteObject(d.Bucket, d.key(b)); err != nil {
			return fmt.Errorf("wiping `%s`: %w", d.Prefix, err)
		}
	}
	return nil
}
