// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"github.com/boljen/go-bitmap"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/prefix"
)

// blockInfo summarizes a single block for logging and statistics.
type blockInfo struct {
	RLESize  int    // Length of the RLE1 output (and of the BWT)
	Ptr      int    // BWT origin pointer
	NumSyms  int    // Number of coded symbols, including end-of-block
	NumTrees int    // Number of prefix tables
	NumSels  int    // Number of selectors
	NumBits  int64  // Compressed size in bits, including the block magic
	CRC      uint32 // Checksum of the uncompressed block
}

func (bi blockInfo) keysAndValues() []interface{} {
	return []interface{}{
		"rleSize", bi.RLESize, "ptr", bi.Ptr, "syms", bi.NumSyms,
		"trees", bi.NumTrees, "selectors", bi.NumSels, "bits", bi.NumBits,
		"crc", bi.CRC,
	}
}

// blockEncoder compresses one block at a time.
// It is not safe for concurrent use.
type blockEncoder struct {
	bwt   burrowsWheelerTransform
	mtf   moveToFront
	tp    treePlanner
	syms  []uint16
	codes prefix.PrefixCodes
	pes   [maxNumTrees]prefix.Encoder
}

// Encode writes buf, which holds the RLE1 output of a block, as a complete
// block to bw. The crc is the checksum of the block before RLE1.
// The contents of buf are destroyed.
func (e *blockEncoder) Encode(bw *prefix.Writer, buf []byte, crc uint32) blockInfo {
	start := bw.BitsWritten()
	rleSize := len(buf)

	used := bitmap.New(256)
	for _, b := range buf {
		used.Set(int(b), true)
	}
	var dict [256]uint8
	var numUsed int
	for i := 0; i < 256; i++ {
		if used.Get(i) {
			dict[numUsed] = uint8(i)
			numUsed++
		}
	}
	numSyms := numUsed + 2

	ptr := e.bwt.Encode(buf)
	e.mtf.Init(dict[:numUsed])
	idxs := e.mtf.Encode(buf)
	e.syms = encodeZeroRuns(e.syms[:0], idxs, uint16(numSyms-1))
	lens, sels := e.tp.Plan(e.syms, numSyms)

	bw.WriteBits(blkMagic>>24, 24)
	bw.WriteBits(blkMagic&0xffffff, 24)
	bw.WriteBits(uint(crc), 32)
	bw.WriteBits(0, 1) // Randomized blocks are never produced
	bw.WriteBits(uint(ptr), 24)

	// Bitmap of used bytes, coarse level followed by each used fine level.
	var groups uint
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			if used.Get(16*i + j) {
				groups |= 1 << uint(15-i)
				break
			}
		}
	}
	bw.WriteBits(groups, 16)
	for i := 0; i < 16; i++ {
		if groups&(1<<uint(15-i)) == 0 {
			continue
		}
		var bits uint
		for j := 0; j < 16; j++ {
			if used.Get(16*i + j) {
				bits |= 1 << uint(15-j)
			}
		}
		bw.WriteBits(bits, 16)
	}

	e.codes = writeTrees(bw, lens, sels, numSyms, e.pes[:], e.codes)
	for g, t := range sels {
		pe := &e.pes[t]
		for _, s := range symGroup(e.syms, g) {
			bw.WriteSymbol(uint(s), pe)
		}
	}

	return blockInfo{
		RLESize:  rleSize,
		Ptr:      ptr,
		NumSyms:  len(e.syms),
		NumTrees: len(lens),
		NumSels:  len(sels),
		NumBits:  bw.BitsWritten() - start,
		CRC:      crc,
	}
}

// blockDecoder decompresses one block at a time.
// It is not safe for concurrent use.
type blockDecoder struct {
	bwt   burrowsWheelerTransform
	mtf   moveToFront
	syms  []uint16
	sels  []uint8
	codes prefix.PrefixCodes
	pds   [maxNumTrees]prefix.Decoder
	buf   []byte
}

// ReadBlock reads the remainder of a block whose magic was already consumed
// from br. It undoes the prefix, zero-run and MTF stages, returning the BWT
// output of at most maxSize bytes together with the block header fields.
// The returned slice is valid until the next call.
//
// Errors are raised through errors.Panic.
func (d *blockDecoder) ReadBlock(br *prefix.Reader, maxSize int) ([]byte, blockInfo) {
	start := br.BitsRead() - magicBits
	crc := uint32(br.ReadBits(32))
	if br.ReadBits(1) != 0 {
		panicf(errors.Deprecated, "block randomization is not supported")
	}
	ptr := int(br.ReadBits(24))

	var dict [256]uint8
	var numUsed int
	groups := br.ReadBits(16)
	for i := uint(0); i < 16; i++ {
		if groups&(1<<(15-i)) == 0 {
			continue
		}
		bits := br.ReadBits(16)
		for j := uint(0); j < 16; j++ {
			if bits&(1<<(15-j)) != 0 {
				dict[numUsed] = uint8(16*i + j)
				numUsed++
			}
		}
	}
	if numUsed == 0 {
		panicf(errors.Corrupted, "no symbols used in block")
	}
	numSyms := numUsed + 2

	var numTrees int
	d.sels, numTrees, d.codes = readTrees(br, numSyms, d.pds[:], d.sels, d.codes)

	eob := uint(numSyms - 1)
	d.syms = d.syms[:0]
loop:
	for g := 0; ; g++ {
		if g >= len(d.sels) {
			panicf(errors.Corrupted, "insufficient selectors")
		}
		pd := &d.pds[d.sels[g]]
		for i := 0; i < numBlockSyms; i++ {
			s := br.ReadSymbol(pd)
			if s == eob {
				break loop
			}
			if len(d.syms) >= maxSize {
				panicf(errors.Corrupted, "block exceeds %d bytes", maxSize)
			}
			d.syms = append(d.syms, uint16(s))
		}
	}

	idxs, err := decodeZeroRuns(d.buf[:0], d.syms, maxSize)
	if err != nil {
		errors.Panic(err)
	}
	d.mtf.Init(dict[:numUsed])
	d.buf = d.mtf.Decode(idxs)
	if ptr >= len(d.buf) {
		panicf(errors.Corrupted, "origin pointer (%d) exceeds block size: %d", ptr, len(d.buf))
	}

	return d.buf, blockInfo{
		RLESize:  len(d.buf),
		Ptr:      ptr,
		NumSyms:  len(d.syms) + 1,
		NumTrees: numTrees,
		NumSels:  len(d.sels),
		NumBits:  br.BitsRead() - start,
		CRC:      crc,
	}
}

// Finish inverts the BWT of buf in place, leaving the RLE1 output.
func (d *blockDecoder) Finish(buf []byte, ptr int) {
	d.bwt.Decode(buf, ptr)
}
