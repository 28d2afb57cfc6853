// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"github.com/blocksort/compress/internal/errors"
)

// The Decoder uses a two-level lookup: every code no longer than chunkBits
// resolves in the chunks table, while longer codes are redirected from the
// chunks table into one of the links tables using their remaining bits.

type Decoder struct {
	chunks    []uint32   // First-level lookup map
	links     [][]uint32 // Second-level lookup map
	chunkMask uint32     // Mask the length of the chunks table
	linkMask  uint32     // Mask the length of the link table
	chunkBits uint32     // Bit-length of the chunks table
	minBits   uint32     // The minimum number of bits to safely make progress
	numSyms   uint32     // Number of symbols
}

// Init initializes Decoder according to the codes provided.
// The codes must have the Sym, Len and Val fields populated, be sorted by
// symbol and form a complete prefix tree; otherwise Init panics with a
// corruption error.
func (pd *Decoder) Init(codes PrefixCodes) {
	// Handle special case trees.
	if len(codes) <= 1 {
		switch {
		case len(codes) == 0: // Empty tree (should error if used later)
			*pd = Decoder{chunks: pd.chunks[:0], links: pd.links[:0], numSyms: 0}
		case len(codes) == 1 && codes[0].Len == 0: // Single code tree (bit-length of zero)
			*pd = Decoder{
				chunks:  append(pd.chunks[:0], codes[0].Sym<<countBits|0),
				links:   pd.links[:0],
				numSyms: 1,
			}
		default:
			panicf(errors.Corrupted, "degenerate prefix tree with one node")
		}
		return
	}
	if !codes.checkLengths() || !codes.checkPrefixes() {
		panicf(errors.Corrupted, "incomplete or overlapping prefix tree")
	}

	// Compute basic statistics on the symbols.
	var minBits, maxBits uint32 = valueBits, 0
	symLast := -1
	for _, c := range codes {
		if int(c.Sym) <= symLast {
			panicf(errors.Corrupted, "non-unique or non-monotonically increasing symbols")
		}
		if c.Len == 0 || c.Len > valueBits {
			panicf(errors.Corrupted, "invalid prefix bit-length: %d", c.Len)
		}
		if minBits > c.Len {
			minBits = c.Len
		}
		if maxBits < c.Len {
			maxBits = c.Len
		}
		symLast = int(c.Sym) // Keep track of last symbol
	}

	// Allocate chunks table.
	pd.numSyms = uint32(len(codes))
	pd.minBits = minBits
	pd.chunkBits = maxBits
	if pd.chunkBits > maxChunkBits {
		pd.chunkBits = maxChunkBits
	}
	numChunks := 1 << pd.chunkBits
	pd.chunks = extendUint32s(pd.chunks, numChunks)
	pd.chunkMask = uint32(numChunks - 1)

	// Allocate links tables if necessary.
	pd.links = pd.links[:0]
	pd.linkMask = 0
	if pd.chunkBits < maxBits {
		numLinks := 1 << (maxBits - pd.chunkBits)
		pd.linkMask = uint32(numLinks - 1)

		for i := range pd.chunks {
			pd.chunks[i] = 0 // Logic below relies zero value as uninitialized
		}
		for _, c := range codes {
			if c.Len <= pd.chunkBits {
				continue // Ignore symbols that don't require links
			}
			code := c.Val & pd.chunkMask
			if pd.chunks[code] > 0 {
				continue // Link table already initialized
			}
			linkIdx := len(pd.links)
			pd.links = extendSliceUint32s(pd.links, len(pd.links)+1)
			pd.links[linkIdx] = extendUint32s(pd.links[linkIdx], numLinks)
			pd.chunks[code] = uint32(linkIdx<<countBits) | (pd.chunkBits + 1)
		}
	}

	// Fill out chunks and links tables with values.
	for _, c := range codes {
		chunk := c.Sym<<countBits | c.Len
		if c.Len <= pd.chunkBits {
			skip := 1 << c.Len
			for i := int(c.Val); i < len(pd.chunks); i += skip {
				pd.chunks[i] = chunk
			}
		} else {
			linkIdx := pd.chunks[c.Val&pd.chunkMask] >> countBits
			links := pd.links[linkIdx]
			skip := 1 << (c.Len - pd.chunkBits)
			for i := int(c.Val >> pd.chunkBits); i < len(links); i += skip {
				links[i] = chunk
			}
		}
	}
}

// extendUint32s returns a slice with length n, reusing s if possible.
func extendUint32s(s []uint32, n int) []uint32 {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([]uint32, n-cap(s))...)
}

// extendSliceUint32s returns a slice with length n, reusing s if possible.
func extendSliceUint32s(s [][]uint32, n int) [][]uint32 {
	if cap(s) >= n {
		return s[:n]
	}
	return append(s[:cap(s)], make([][]uint32, n-cap(s))...)
}
