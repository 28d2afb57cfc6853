// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/prefix"
)

const (
	minNumTrees    = 2
	smallAlphabet  = 8 // Alphabets smaller than this always use minNumTrees
	maxNumTrees    = 6
	maxPrefixBits  = 20      // Maximum bit-length of a prefix code
	maxNumSyms     = 256 + 2 // Maximum number of symbols in the alphabet
	numBlockSyms   = 50      // Number of symbols coded by each selector
	numRefinements = 4       // Number of table refinement passes
	maxNumSels     = 1<<15 - 1
)

// treeLens holds the bit-length of every symbol in one prefix table.
type treeLens [maxNumSyms]uint8

// maxTreesFor reports the most prefix tables worth trying for a block
// with n symbols drawn from an alphabet of numSyms symbols.
func maxTreesFor(n, numSyms int) int {
	switch {
	case numSyms < smallAlphabet, n < 200:
		return 2
	case n < 600:
		return 3
	case n < 1200:
		return 4
	case n < 2400:
		return 5
	default:
		return 6
	}
}

// symGroup returns the i-th group of numBlockSyms symbols.
func symGroup(syms []uint16, i int) []uint16 {
	lo, hi := i*numBlockSyms, (i+1)*numBlockSyms
	if hi > len(syms) {
		hi = len(syms)
	}
	return syms[lo:hi]
}

func numGroups(syms []uint16) int {
	return (len(syms) + numBlockSyms - 1) / numBlockSyms
}

// treePlanner chooses the prefix tables and selectors of a block.
type treePlanner struct {
	codes prefix.PrefixCodes
	lens  [maxNumTrees]treeLens
	sels  []uint8

	// The best plan found so far.
	bestLens [maxNumTrees]treeLens
	bestSels []uint8
	bestBits int
}

// Plan tries every table count from minNumTrees up to the ceiling for the
// block size and alphabet and keeps the one producing the fewest bits. It returns the
// chosen tables and the table index of every symbol group.
func (tp *treePlanner) Plan(syms []uint16, numSyms int) ([]treeLens, []uint8) {
	bestTrees := 0
	for nt := minNumTrees; nt <= maxTreesFor(len(syms), numSyms); nt++ {
		lens := tp.lens[:nt]
		initTreeLens(lens, syms, numSyms)
		for i := 0; i < numRefinements; i++ {
			tp.refine(lens, syms, numSyms)
		}
		tp.sels = assignGroups(tp.sels, syms, lens)

		bits := countBits(lens, tp.sels, syms, numSyms)
		if bestTrees == 0 || bits < tp.bestBits {
			bestTrees, tp.bestBits = nt, bits
			copy(tp.bestLens[:], lens)
			tp.bestSels = append(tp.bestSels[:0], tp.sels...)
		}
	}
	return tp.bestLens[:bestTrees], tp.bestSels
}

// initTreeLens seeds each table with a cost of zero for a contiguous range
// of symbols and 15 for all others. The ranges split the symbol frequencies
// into roughly equal parts.
func initTreeLens(lens []treeLens, syms []uint16, numSyms int) {
	var freqs [maxNumSyms]int
	for _, s := range syms {
		freqs[s]++
	}

	remain, lo := len(syms), 0
	for t := range lens {
		hi, acc := lo, 0
		if t == len(lens)-1 {
			hi = numSyms
		} else {
			target := remain / (len(lens) - t)
			for hi < numSyms && acc < target {
				acc += freqs[hi]
				hi++
			}
		}
		for s := 0; s < numSyms; s++ {
			if lo <= s && s < hi {
				lens[t][s] = 0
			} else {
				lens[t][s] = 15
			}
		}
		remain -= acc
		lo = hi
	}
}

// refine assigns every group to its cheapest table and then rebuilds each
// table from the frequencies of the groups assigned to it.
func (tp *treePlanner) refine(lens []treeLens, syms []uint16, numSyms int) {
	tp.sels = assignGroups(tp.sels, syms, lens)

	var freqs [maxNumTrees][maxNumSyms]uint32
	for g, t := range tp.sels {
		for _, s := range symGroup(syms, g) {
			freqs[t][s]++
		}
	}
	for t := range lens {
		tp.codes = buildTreeLens(&lens[t], freqs[t][:numSyms], tp.codes)
	}
}

// buildTreeLens computes length-limited Huffman bit-lengths for the given
// frequencies. Every symbol gets a code, even if it never occurs.
func buildTreeLens(lens *treeLens, freqs []uint32, codes prefix.PrefixCodes) prefix.PrefixCodes {
	codes = codes[:0]
	for s, f := range freqs {
		if f == 0 {
			f = 1
		}
		codes = append(codes, prefix.PrefixCode{Sym: uint32(s), Cnt: f})
	}
	codes.SortByCount()
	if err := prefix.GenerateLengths(codes, maxPrefixBits); err != nil {
		errors.Panic(err)
	}
	for _, c := range codes {
		lens[c.Sym] = uint8(c.Len)
	}
	return codes
}

// assignGroups picks the cheapest table for each group of symbols.
// Ties go to the lowest table index.
func assignGroups(sels []uint8, syms []uint16, lens []treeLens) []uint8 {
	sels = sels[:0]
	for g := 0; g < numGroups(syms); g++ {
		grp := symGroup(syms, g)
		best, bestCost := 0, -1
		for t := range lens {
			var cost int
			for _, s := range grp {
				cost += int(lens[t][s])
			}
			if bestCost < 0 || cost < bestCost {
				best, bestCost = t, cost
			}
		}
		sels = append(sels, uint8(best))
	}
	return sels
}

// countBits reports the number of bits needed to store the tables, the
// selectors and the symbols for the given plan.
func countBits(lens []treeLens, sels []uint8, syms []uint16, numSyms int) int {
	var bits int
	for t := range lens {
		bits += 5
		prev := int(lens[t][0])
		for _, l := range lens[t][:numSyms] {
			d := int(l) - prev
			if d < 0 {
				d = -d
			}
			bits += 2*d + 1
			prev = int(l)
		}
	}

	mtf := [maxNumTrees]uint8{0, 1, 2, 3, 4, 5}
	for g, t := range sels {
		var idx int
		for mtf[idx] != t {
			idx++
		}
		copy(mtf[1:], mtf[:idx])
		mtf[0] = t
		bits += idx + 1

		for _, s := range symGroup(syms, g) {
			bits += int(lens[t][s])
		}
	}
	return bits
}

// writeTrees writes the table count, the MTF coded selectors and the delta
// coded bit-lengths of every table. It also prepares an Encoder per table.
func writeTrees(bw *prefix.Writer, lens []treeLens, sels []uint8, numSyms int, pes []prefix.Encoder, codes prefix.PrefixCodes) prefix.PrefixCodes {
	bw.WriteBits(uint(len(lens)), 3)
	bw.WriteBits(uint(len(sels)), 15)

	mtf := [maxNumTrees]uint8{0, 1, 2, 3, 4, 5}
	for _, t := range sels {
		var idx uint
		for mtf[idx] != t {
			idx++
		}
		copy(mtf[1:], mtf[:idx])
		mtf[0] = t
		bw.WriteBits(1<<(idx+1)-2, idx+1) // Unary code of idx
	}

	for t := range lens {
		cur := lens[t][0]
		bw.WriteBits(uint(cur), 5)
		codes = codes[:0]
		for s, l := range lens[t][:numSyms] {
			for ; cur < l; cur++ {
				bw.WriteBits(2, 2) // "10" increments
			}
			for ; cur > l; cur-- {
				bw.WriteBits(3, 2) // "11" decrements
			}
			bw.WriteBits(0, 1)
			codes = append(codes, prefix.PrefixCode{Sym: uint32(s), Len: uint32(l)})
		}
		if err := prefix.GeneratePrefixes(codes); err != nil {
			errors.Panic(err)
		}
		pes[t].Init(codes)
	}
	return codes
}

// readTrees reads what writeTrees writes, preparing a Decoder per table.
// It returns the selectors and the number of tables.
func readTrees(br *prefix.Reader, numSyms int, pds []prefix.Decoder, sels []uint8, codes prefix.PrefixCodes) ([]uint8, int, prefix.PrefixCodes) {
	numTrees := int(br.ReadBits(3))
	if numTrees < minNumTrees || numTrees > maxNumTrees {
		panicf(errors.Corrupted, "invalid number of prefix trees: %d", numTrees)
	}
	numSels := int(br.ReadBits(15))
	if numSels == 0 {
		panicf(errors.Corrupted, "invalid number of selectors: %d", numSels)
	}

	mtf := [maxNumTrees]uint8{0, 1, 2, 3, 4, 5}
	sels = sels[:0]
	for i := 0; i < numSels; i++ {
		var idx int
		for br.ReadBits(1) == 1 {
			if idx++; idx >= numTrees {
				panicf(errors.Corrupted, "invalid selector index: %d", idx)
			}
		}
		t := mtf[idx]
		copy(mtf[1:], mtf[:idx])
		mtf[0] = t
		sels = append(sels, t)
	}

	for t := 0; t < numTrees; t++ {
		cur := int(br.ReadBits(5))
		codes = codes[:0]
		for s := 0; s < numSyms; s++ {
			for {
				if cur < 1 || cur > maxPrefixBits {
					panicf(errors.Corrupted, "invalid prefix bit-length: %d", cur)
				}
				if br.ReadBits(1) == 0 {
					break
				}
				if br.ReadBits(1) == 0 {
					cur++
				} else {
					cur--
				}
			}
			codes = append(codes, prefix.PrefixCode{Sym: uint32(s), Len: uint32(cur)})
		}
		if err := prefix.GeneratePrefixes(codes); err != nil {
			errors.Panic(err)
		}
		pds[t].Init(codes)
	}
	return sels, numTrees, codes
}
