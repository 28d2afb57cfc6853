// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"testing"

	"github.com/blocksort/compress/internal/testutil"
)

func TestMaxTreesFor(t *testing.T) {
	var vectors = []struct {
		n, numSyms int
		want       int
	}{
		{n: 0, numSyms: 3, want: 2},
		{n: 199, numSyms: 258, want: 2},
		{n: 200, numSyms: 258, want: 3},
		{n: 599, numSyms: 258, want: 3},
		{n: 600, numSyms: 258, want: 4},
		{n: 1200, numSyms: 258, want: 5},
		{n: 2400, numSyms: 258, want: 6},
		{n: 900000, numSyms: 258, want: 6},
		{n: 900000, numSyms: 4, want: 2},
		{n: 900000, numSyms: 7, want: 2},
		{n: 900000, numSyms: 8, want: 6},
	}

	for i, v := range vectors {
		if got := maxTreesFor(v.n, v.numSyms); got != v.want {
			t.Errorf("test %d, maxTreesFor(%d, %d) = %d, want %d", i, v.n, v.numSyms, got, v.want)
		}
	}
}

// twoLetterText returns n bytes over {'a', 'b'} whose letter frequencies
// change every 500 bytes. No byte repeats more than 3 times, so RLE1 leaves
// the data unchanged.
func twoLetterText(n int) []byte {
	r := testutil.NewRand(0)
	b := make([]byte, 0, n)
	for len(b) < n {
		pa := 10 + 80*((len(b)/500)%2) // Percent of 'a'
		c := byte('b')
		if r.Intn(100) < pa {
			c = 'a'
		}
		if k := len(b); k >= 3 && b[k-1] == c && b[k-2] == c && b[k-3] == c {
			c = 'a' + 'b' - c
		}
		b = append(b, c)
	}
	return b
}

func TestTreePlannerSmallAlphabet(t *testing.T) {
	input := twoLetterText(40000)
	blks := splitBlocks(input, BestCompression)
	if len(blks) != 1 || !bytes.Equal(blks[0].rle, input) {
		t.Fatalf("unexpected RLE1 split: %d blocks", len(blks))
	}

	f, bi, err := encodeFrame(new(blockEncoder), blks[0].rle, blks[0].crc, blks[0].size)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bi.NumSyms < 200*6 {
		t.Fatalf("block too short to exercise table counts: %d symbols", bi.NumSyms)
	}
	if bi.NumTrees != minNumTrees {
		t.Errorf("mismatching encoded table count: got %d, want %d", bi.NumTrees, minNumTrees)
	}

	output, bi, err := decodeFrame(new(blockDecoder), nil, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bi.NumTrees != minNumTrees {
		t.Errorf("mismatching decoded table count: got %d, want %d", bi.NumTrees, minNumTrees)
	}
	if !bytes.Equal(output, input) {
		t.Errorf("output data mismatch")
	}
}
