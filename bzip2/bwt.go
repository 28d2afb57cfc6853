// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

// The Burrows-Wheeler Transform implementation used here is based on the
// Suffix Array by Induced Sorting (SA-IS) methodology by Nong, Zhang, and Chan.
//
// The SA-IS algorithm runs in O(n) and outputs a Suffix Array. There is a
// mathematical relationship between Suffix Arrays and the Burrow-Wheeler
// Transform, such that a SA can be converted to a BWT in O(n) time.
//
// Rotations are sorted by computing the suffix array of the input repeated
// twice. When the input is periodic, several rotations are identical and the
// suffix array orders them by descending start position. Identical rotations
// are ordered by ascending start position instead, which only moves the
// origin pointer to the first row of its group.
//
// References:
//	https://sites.google.com/site/yuta256/sais
//	https://github.com/cscott/compressjs/blob/master/lib/BWT.js
//	https://www.quora.com/How-can-I-optimize-burrows-wheeler-transform-and-inverse-transform-to-work-in-O-n-time-O-n-space
//	https://ge-nong.googlecode.com/files/Two%20Efficient%20Algorithms%20for%20Linear%20Time%20Suffix%20Array%20Construction.pdf

import "github.com/blocksort/compress/bzip2/internal/sais"

// burrowsWheelerTransform performs the forward and inverse BWT in place.
// Scratch buffers are kept across calls to reduce allocations.
type burrowsWheelerTransform struct {
	t  []byte
	sa []int
	tt []uint32
	ob []byte
}

// Encode replaces buf with the last column of its sorted rotations and
// returns the row of the original string. The pointer is -1 for empty input.
func (bwt *burrowsWheelerTransform) Encode(buf []byte) (ptr int) {
	if len(buf) == 0 {
		return -1
	}

	n := len(buf)
	bwt.t = append(append(bwt.t[:0], buf...), buf...)
	if cap(bwt.sa) < 2*n {
		bwt.sa = make([]int, 2*n)
	}
	sa := bwt.sa[:2*n]
	sais.ComputeSA(bwt.t, sa)

	for i, j := 0, 0; i < 2*n; i++ {
		if idx := sa[i]; idx < n {
			if idx == 0 {
				ptr = j
				idx = n
			}
			buf[j] = bwt.t[idx-1]
			j++
		}
	}
	return ptr - (cyclicRepeats(bwt.t[:n], sa[:n]) - 1)
}

// cyclicRepeats reports how many times the shortest cyclic period of buf
// repeats within buf. The fail slice is scratch space of len(buf).
func cyclicRepeats(buf []byte, fail []int) int {
	n := len(buf)
	fail[0] = 0
	for i := 1; i < n; i++ {
		k := fail[i-1]
		for k > 0 && buf[i] != buf[k] {
			k = fail[k-1]
		}
		if buf[i] == buf[k] {
			k++
		}
		fail[i] = k
	}
	if p := n - fail[n-1]; n%p == 0 {
		return n / p
	}
	return 1
}

// Decode inverts Encode. The ptr must be within [0, len(buf)).
func (bwt *burrowsWheelerTransform) Decode(buf []byte, ptr int) {
	if len(buf) == 0 {
		return
	}

	var c [256]int
	for _, v := range buf {
		c[v]++
	}

	var sum int
	for i, v := range c {
		sum += v
		c[i] = sum - v
	}

	if cap(bwt.tt) < len(buf) {
		bwt.tt = make([]uint32, len(buf))
	}
	tt := bwt.tt[:len(buf)]
	for i, b := range buf {
		tt[c[b]] = uint32(i)
		c[b]++
	}

	bwt.ob = append(bwt.ob[:0], buf...)
	tPos := tt[ptr]
	for i := range tt {
		buf[i] = bwt.ob[tPos]
		tPos = tt[tPos]
	}
}
