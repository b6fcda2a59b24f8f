package io

import (
	"errors"
	"testing"

	. "github.com/weberc2/assoofs/pkg/types"
)

func block(fill byte) *[BlockSize]byte {
	var p [BlockSize]byte
	for i := range p {
		p[i] = fill
	}
	return &p
}

func TestCache_GetWhenEmpty(t *testing.T) {
	c := NewCache(2)

	var p [BlockSize]byte
	if c.Get(0, &p) {
		t.Fatal("empty cache: getting block `0`: expected `false`; found `true`")
	}
}

func TestCache(t *testing.T) {
	type testCase struct {
		name          string
		capacity      int
		initialState  []Block
		pushInput     Block
		wantedEvicted bool
		getInput      Block
		wanted        bool
	}

	testCases := []testCase{{
		name:      "empty",
		capacity:  2,
		pushInput: 10,
		getInput:  10,
		wanted:    true,
	}, {
		name:         "neither empty nor full",
		capacity:     2,
		initialState: []Block{9},
		pushInput:    10,
		getInput:     9,
		wanted:       true,
	}, {
		name:          "eviction",
		capacity:      1,
		initialState:  []Block{9},
		pushInput:     10,
		wantedEvicted: true,
		getInput:      9,
		wanted:        false,
	}, {
		name:         "lru order",
		capacity:     2,
		initialState: []Block{8, 9, 8},
		pushInput:    10,
		// 9 is the least recently used and gets evicted; 8 survives
		wantedEvicted: true,
		getInput:      8,
		wanted:        true,
	}, {
		name:      "zero capacity",
		capacity:  0,
		pushInput: 10,
		getInput:  10,
		wanted:    false,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCache(tc.capacity)
			for _, b := range tc.initialState {
				c.Push(b, block(byte(b)))
			}

			if evicted := c.Push(tc.pushInput, block(byte(tc.pushInput))); evicted != tc.wantedEvicted {
				t.Fatalf(
					"Push(): wanted eviction `%t`; found `%t`",
					tc.wantedEvicted,
					evicted,
				)
			}

			var output [BlockSize]byte
			found := c.Get(tc.getInput, &output)
			if found != tc.wanted {
				t.Fatalf("Get(): wanted `%t`; found `%t`", tc.wanted, found)
			}
			if found && output != *block(byte(tc.getInput)) {
				t.Fatalf("Get(): wrong contents for block `%d`", tc.getInput)
			}
		})
	}
}

func TestCache_Remove(t *testing.T) {
	c := NewCache(1)
	c.Push(1, block(1))
	if !c.Remove(1) {
		t.Fatal("Remove(): wanted `true`; found `false`")
	}
	if c.Remove(1) {
		t.Fatal("Remove(): second removal: wanted `false`; found `true`")
	}
	// the freed entry is reused without evicting anything
	if c.Push(2, block(2)) {
		t.Fatal("Push(): unexpected eviction after Remove()")
	}
	if c.Len() != 1 {
		t.Fatalf("Len(): wanted `1`; found `%d`", c.Len())
	}
}

type failingDevice struct {
	BlockDevice
	failWrites bool
	reads      int
}

func (d *failingDevice) ReadBlock(b Block, p *[BlockSize]byte) error {
	d.reads++
	return d.BlockDevice.ReadBlock(b, p)
}

func (d *failingDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	if d.failWrites {
		return &IOErr{Op: "writing", Block: b, Err: errors.New("boom")}
	}
	return d.BlockDevice.WriteBlock(b, p)
}

func TestCachingDevice(t *testing.T) {
	inner := &failingDevice{BlockDevice: NewMemoryDevice(4)}
	d := NewCachingDevice(inner, 2)

	if err := d.WriteBlock(1, block(0xaa)); err != nil {
		t.Fatalf("WriteBlock(): unexpected err: %v", err)
	}
	var p [BlockSize]byte
	if err := d.ReadBlock(1, &p); err != nil {
		t.Fatalf("ReadBlock(): unexpected err: %v", err)
	}
	if p != *block(0xaa) {
		t.Fatal("ReadBlock(): wanted the written contents")
	}
	if inner.reads != 0 {
		t.Fatalf("wanted read served from cache; found `%d` device reads", inner.reads)
	}

	// a failed write must not be observable through the cache
	inner.failWrites = true
	err := d.WriteBlock(1, block(0xbb))
	var ioErr *IOErr
	if !errors.As(err, &ioErr) {
		t.Fatalf("WriteBlock(): wanted `*IOErr`; found `%v`", err)
	}
	if err := d.ReadBlock(1, &p); err != nil {
		t.Fatalf("ReadBlock(): unexpected err: %v", err)
	}
	if p != *block(0xaa) {
		t.Fatal("ReadBlock(): failed write leaked into the cache")
	}
}

func TestVolumeDevice_OutOfRange(t *testing.T) {
	d := NewMemoryDevice(2)
	var p [BlockSize]byte
	err := d.ReadBlock(2, &p)
	var ioErr *IOErr
	if !errors.As(err, &ioErr) {
		t.Fatalf("ReadBlock(): wanted `*IOErr`; found `%v`", err)
	}
	if ioErr.Block != 2 {
		t.Fatalf("IOErr.Block: wanted `2`; found `%d`", ioErr.Block)
	}
}

func TestOffsetVolume(t *testing.T) {
	buf := NewBuffer(make([]byte, 3*BlockSize))
	d := NewVolumeDevice(NewOffsetVolume(buf, BlockSize))
	if err := d.WriteBlock(0, block(0x11)); err != nil {
		t.Fatalf("WriteBlock(): unexpected err: %v", err)
	}
	if buf.Bytes()[0] != 0 || buf.Bytes()[BlockSize] != 0x11 {
		t.Fatal("wanted block `0` written at base offset")
	}
	var p [BlockSize]byte
	if err := d.ReadBlock(2, &p); err == nil {
		t.Fatal("ReadBlock(): wanted error past the end of the volume")
	}
}
