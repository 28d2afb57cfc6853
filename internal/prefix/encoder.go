// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"github.com/blocksort/compress/internal/errors"
)

type Encoder struct {
	chunks    []uint32 // First-level lookup map
	chunkMask uint32   // Mask the length of the chunks table
	numSyms   uint32   // Number of symbols
}

// Init initializes Encoder according to the codes provided.
// The codes must have the Sym, Len and Val fields populated.
func (pe *Encoder) Init(codes PrefixCodes) {
	// Handle special case trees.
	if len(codes) <= 1 {
		switch {
		case len(codes) == 0: // Empty tree (should error if used later)
			*pe = Encoder{chunks: pe.chunks[:0], numSyms: 0}
		case len(codes) == 1 && codes[0].Len == 0: // Single code tree (bit-length of zero)
			*pe = Encoder{chunks: append(pe.chunks[:0], 0), numSyms: 1}
		default:
			panicf(errors.Corrupted, "degenerate prefix tree with one node")
		}
		return
	}

	// Compute basic statistics on the symbols.
	var maxSym uint32
	for _, c := range codes {
		if maxSym < c.Sym {
			maxSym = c.Sym
		}
		if c.Len > valueBits {
			panicf(errors.Invalid, "invalid prefix bit-length: %d", c.Len)
		}
	}

	// Allocate chunks table; unused symbols map to the invalid zero chunk.
	numChunks := 1
	for numChunks <= int(maxSym) {
		numChunks <<= 1
	}
	pe.numSyms = uint32(len(codes))
	pe.chunks = extendUint32s(pe.chunks, numChunks)
	pe.chunkMask = uint32(numChunks - 1)
	for i := range pe.chunks {
		pe.chunks[i] = 0
	}

	// Fill out chunks table with values.
	for _, c := range codes {
		pe.chunks[c.Sym] = c.Val<<countBits | c.Len
	}
}
