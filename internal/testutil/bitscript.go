// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reBits = regexp.MustCompile("^[01]{1,64}$")
	reNum  = regexp.MustCompile("^(D[0-9]+:[0-9]+|H[0-9]+:[0-9a-fA-F]{1,16})$")
)

// DecodeBits assembles a bit-stream from a script of whitespace separated
// tokens, packing bits from the most-significant bit of each byte as bzip2
// does. Text after a '#' on a line is a comment.
//
// Tokens:
//	1101      literal bits, written left to right
//	D5:17     the decimal value 17 as a 5-bit field
//	H48:3141  a hexadecimal value as a 48-bit field
//
// Any token may be suffixed by "*N" to repeat it N times.
// The final byte is padded with zero bits.
//
// Example, a block header of a level 9 stream:
//	H24:425a68 H8:39  # "BZh9"
//	H48:314159265359  # Block magic
//	H32:00000000      # Block CRC
//	1 D24:0           # Randomized, origin pointer
//
// produces "425a68393141592653590000000080000000" in hexadecimal.
func DecodeBits(script string) ([]byte, error) {
	var bb bitBuilder
	for _, line := range strings.Split(script, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			if err := bb.token(tok); err != nil {
				return nil, err
			}
		}
	}
	return bb.buf, nil
}

// MustDecodeBits must decode a bit script or else panics.
func MustDecodeBits(script string) []byte {
	b, err := DecodeBits(script)
	if err != nil {
		panic(err)
	}
	return b
}

type bitBuilder struct {
	buf []byte
	cnt uint // Number of bits written
}

func (bb *bitBuilder) writeBits(v uint64, n uint) {
	for i := n; i > 0; i-- {
		if bb.cnt%8 == 0 {
			bb.buf = append(bb.buf, 0)
		}
		if (v>>(i-1))&1 != 0 {
			bb.buf[len(bb.buf)-1] |= 0x80 >> (bb.cnt % 8)
		}
		bb.cnt++
	}
}

func (bb *bitBuilder) token(tok string) error {
	rep := 1
	if i := strings.LastIndexByte(tok, '*'); i >= 0 {
		n, err := strconv.Atoi(tok[i+1:])
		if err != nil || n < 0 {
			return fmt.Errorf("testutil: invalid repeat count: %q", tok)
		}
		tok, rep = tok[:i], n
	}

	var v uint64
	var n uint
	switch {
	case reBits.MatchString(tok):
		v, _ = strconv.ParseUint(tok, 2, 64)
		n = uint(len(tok))
	case reNum.MatchString(tok):
		i := strings.IndexByte(tok, ':')
		base := 10
		if tok[0] == 'H' {
			base = 16
		}
		w, err1 := strconv.Atoi(tok[1:i])
		x, err2 := strconv.ParseUint(tok[i+1:], base, 64)
		if err1 != nil || err2 != nil || w > 64 {
			return fmt.Errorf("testutil: invalid numeric token: %q", tok)
		}
		if w < 64 && x>>uint(w) != 0 {
			return fmt.Errorf("testutil: value overflows field: %q", tok)
		}
		v, n = x, uint(w)
	default:
		return fmt.Errorf("testutil: invalid token: %q", tok)
	}
	for ; rep > 0; rep-- {
		bb.writeBits(v, n)
	}
	return nil
}
