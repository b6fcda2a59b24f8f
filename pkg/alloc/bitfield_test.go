package alloc

import (
	"testing"

	. "github.com/weberc2/assoofs/pkg/types"
)

func TestBitfield(t *testing.T) {
	for _, testCase := range []struct {
		name          string
		blocks        Block
		allocs        int
		wantedBlocks  []Block
		wantedFailure bool
		wantedFree    int
	}{{
		name:         "first data block",
		blocks:       8,
		allocs:       1,
		wantedBlocks: []Block{3},
		wantedFree:   4,
	}, {
		name:          "exhausted",
		blocks:        5,
		allocs:        3,
		wantedBlocks:  []Block{3, 4},
		wantedFailure: true,
		wantedFree:    0,
	}, {
		name:         "clamped to max blocks",
		blocks:       1000,
		allocs:       0,
		wantedBlocks: nil,
		wantedFree:   int(MaxBlocks - LastReservedBlock - 1),
	}, {
		name:          "only reserved blocks",
		blocks:        3,
		allocs:        1,
		wantedFailure: true,
		wantedFree:    0,
	}} {
		t.Run(testCase.name, func(t *testing.T) {
			bf := NewBitfield(testCase.blocks)
			var found []Block
			failed := false
			for i := 0; i < testCase.allocs; i++ {
				b, ok := bf.Alloc()
				if !ok {
					failed = true
					break
				}
				found = append(found, b)
			}
			if failed != testCase.wantedFailure {
				t.Fatalf("wanted failure `%t`; found `%t`", testCase.wantedFailure, failed)
			}
			if len(found) != len(testCase.wantedBlocks) {
				t.Fatalf("wanted blocks `%v`; found `%v`", testCase.wantedBlocks, found)
			}
			for i := range found {
				if found[i] != testCase.wantedBlocks[i] {
					t.Fatalf("wanted blocks `%v`; found `%v`", testCase.wantedBlocks, found)
				}
			}
			if n := bf.FreeCount(); n != testCase.wantedFree {
				t.Fatalf("FreeCount(): wanted `%d`; found `%d`", testCase.wantedFree, n)
			}
		})
	}
}

func TestBitfield_FreeReserve(t *testing.T) {
	bf := NewBitfield(8)
	if bf.IsFree(RootDirDataBlock) {
		t.Fatal("reserved block reported free")
	}
	bf.Reserve(5)
	if bf.IsFree(5) {
		t.Fatal("Reserve(): block `5` still free")
	}
	bf.Free(5)
	if !bf.IsFree(5) {
		t.Fatal("Free(): block `5` not free")
	}
	if b, _ := bf.First(); b != 3 {
		t.Fatalf("First(): wanted `3`; found `%d`", b)
	}
	if !bf.IsFree(3) {
		t.Fatal("First(): must not reserve")
	}
}
