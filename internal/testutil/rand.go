// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// Rand is a deterministic pseudo-random generator backed by AES in counter
// mode. Unlike math/rand, its output is fixed across Go releases, so the
// synthetic corpora are stable.
type Rand struct {
	ctr cipher.Stream
	buf [8]byte
}

func NewRand(seed int) *Rand {
	var key, iv [aes.BlockSize]byte
	binary.LittleEndian.PutUint64(key[:], uint64(seed))
	blk, _ := aes.NewCipher(key[:])
	return &Rand{ctr: cipher.NewCTR(blk, iv[:])}
}

// Uint64 returns 64 pseudo-random bits.
func (r *Rand) Uint64() uint64 {
	r.buf = [8]byte{}
	r.ctr.XORKeyStream(r.buf[:], r.buf[:])
	return binary.LittleEndian.Uint64(r.buf[:])
}

// Int returns a non-negative pseudo-random int of at most 62 bits.
func (r *Rand) Int() int {
	return int(r.Uint64() >> 2)
}

// Intn returns a pseudo-random int in [0, n).
func (r *Rand) Intn(n int) int {
	return r.Int() % n
}

// Bytes returns n pseudo-random bytes.
func (r *Rand) Bytes(n int) []byte {
	b := make([]byte, n)
	r.ctr.XORKeyStream(b, b)
	return b
}

// Perm returns a pseudo-random permutation of [0, n).
func (r *Rand) Perm(n int) []int {
	m := make([]int, n)
	for i := 0; i < n; i++ {
		j := r.Intn(i + 1)
		m[i] = m[j]
		m[j] = i
	}
	return m
}
