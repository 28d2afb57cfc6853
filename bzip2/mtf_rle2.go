// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import "github.com/blocksort/compress/internal/errors"

// moveToFront implements the MTF stage of bzip2. Each value is replaced by
// its current position in the dictionary, and then moved to the front.
//
// For example, with the dictionary {0, 1, 2, 3}:
//	vals: []byte{1, 1, 3, 1, 0}
//	idxs: []uint8{1, 0, 3, 1, 2}
type moveToFront struct {
	dictBuf [256]uint8
	dictLen int
}

// Init initializes the moveToFront codec. The dict must contain all of the
// symbols in the alphabet used in future operations. A copy of the input dict
// will be made so that it will not be mutated.
func (m *moveToFront) Init(dict []uint8) {
	if len(dict) > len(m.dictBuf) {
		panic("alphabet too large")
	}
	copy(m.dictBuf[:], dict)
	m.dictLen = len(dict)
}

// Encode replaces every value in vals with its MTF index in place.
func (m *moveToFront) Encode(vals []byte) (idxs []uint8) {
	dict := m.dictBuf[:m.dictLen]
	for i, val := range vals {
		var idx uint8 // Reverse lookup idx in dict
		for di, dv := range dict {
			if dv == val {
				idx = uint8(di)
				break
			}
		}
		copy(dict[1:], dict[:idx])
		dict[0] = val
		vals[i] = idx
	}
	return vals
}

// Decode replaces every index in idxs with its value in place.
// Every index must be less than the dictionary length.
func (m *moveToFront) Decode(idxs []uint8) (vals []byte) {
	dict := m.dictBuf[:m.dictLen]
	for i, idx := range idxs {
		val := dict[idx] // Forward lookup val in dict
		copy(dict[1:], dict[:idx])
		dict[0] = val
		idxs[i] = val
	}
	return idxs
}

const (
	runA = 0 // Zero-run digit of weight 1
	runB = 1 // Zero-run digit of weight 2
)

// encodeZeroRuns converts MTF indexes into the bzip2 symbol alphabet.
// Runs of zeros become RUNA/RUNB digits, every other index i becomes the
// symbol i+1, and the end-of-block symbol eob is appended.
//
// For example, with eob equal to 8:
//	idxs: []uint8{0, 0, 1, 6, 3, 0, 0, 0, 2, 1, 0, 4}
//	syms: []uint16{1, 2, 7, 4, 0, 0, 3, 2, 0, 5, 8}
func encodeZeroRuns(syms []uint16, idxs []uint8, eob uint16) []uint16 {
	var run uint32
	flush := func() {
		if run == 0 {
			return
		}
		code := runCode(run).Encode()
		n, bits := code&0x1f, code>>5
		for i := uint32(0); i < n; i++ {
			syms = append(syms, uint16(bits&1))
			bits >>= 1
		}
		run = 0
	}

	for _, idx := range idxs {
		if idx == 0 {
			run++
			continue
		}
		flush()
		syms = append(syms, uint16(idx)+1)
	}
	flush()
	return append(syms, eob)
}

// decodeZeroRuns is the inverse of encodeZeroRuns, where syms excludes the
// end-of-block symbol. It fails if the output would exceed maxLen indexes.
func decodeZeroRuns(idxs []uint8, syms []uint16, maxLen int) ([]uint8, error) {
	var code uint32 // Pending zero run as a runCode
	flush := func() error {
		run := int(runCode(code).Decode())
		code = 0
		if len(idxs)+run > maxLen {
			return errorf(errors.Corrupted, "block exceeds %d bytes", maxLen)
		}
		for ; run > 0; run-- {
			idxs = append(idxs, 0)
		}
		return nil
	}

	for _, s := range syms {
		if s <= runB {
			n := code & 0x1f
			if n == maxRunDigits {
				return idxs, errorf(errors.Corrupted, "zero run exceeds %d bytes", maxLen)
			}
			code = (code + 1) | uint32(s)<<(5+n)
			continue
		}
		if err := flush(); err != nil {
			return idxs, err
		}
		if len(idxs) >= maxLen {
			return idxs, errorf(errors.Corrupted, "block exceeds %d bytes", maxLen)
		}
		idxs = append(idxs, uint8(s-1))
	}
	return idxs, flush()
}

// For the RLE encoding that is applied after MTF, a bijective base-2 numeration
// is used. This is a variable length code, so the length of the input effects
// the value of the output.
//
// To save space, the RLE encoding is stored in a single uint32, where the lower
// 5-bits are used for the bit-length, the upper 27-bits are for the RLE code
// itself. RUNA is represented by a 0; RUNB is represented by a 1. The bits
// are packed in LE order; that is, the least significant bit is in the LSB
// position of the integer. This encoding has a maximum size of ~256MiB.
type runCode uint32

const maxRunDigits = 27 // Most RUNA/RUNB digits a runCode can hold

func (v runCode) Encode() (x uint32) {
	var n int
	if v > 0 {
		for rep := v - 1; ; rep = (rep - 2) / 2 {
			if x >>= 1; rep&1 > 0 {
				x |= 0x80000000
			}
			n++
			if rep < 2 {
				break
			}
		}
		if n > maxRunDigits {
			return ^uint32(0) // Invalid value to cause problems later
		}
	}
	return (x >> uint(maxRunDigits-n)) | uint32(n)
}

func (v runCode) Decode() (x uint32) {
	repPwr := uint32(1)
	n := int(v & 0x1f)
	v >>= 5
	for i := 0; i < n; i++ {
		x += repPwr << (v & 1)
		repPwr <<= 1
		v >>= 1
	}
	if n > maxRunDigits {
		return ^uint32(0) // Invalid value to cause problems later
	}
	return x
}
