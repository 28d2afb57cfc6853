// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import "strings"

// The generators below produce deterministic inputs with the statistical
// shape of the usual compression test files, so tests need no binary
// fixtures on disk.

// Corpus is the set of named generators, each returning n bytes.
var Corpus = map[string]func(n int) []byte{
	"random.bin":  func(n int) []byte { return NewRand(0).Bytes(n) },
	"zeros.bin":   func(n int) []byte { return make([]byte, n) },
	"repeats.bin": Repeats,
	"digits.txt":  Digits,
	"twain.txt":   Text,
	"binary.bin":  Binary,
}

// CorpusNames returns the names in Corpus in a stable order.
func CorpusNames() []string {
	return []string{"binary.bin", "digits.txt", "random.bin", "repeats.bin", "twain.txt", "zeros.bin"}
}

// Repeats returns mostly random data in which the bulk is copied from
// some distance ago, so repeated contexts are common but byte statistics
// are flat.
func Repeats(n int) []byte {
	r := NewRand(1)
	b := make([]byte, 0, n+512)
	randLen := func() int {
		shift := uint(2 + r.Intn(7)) // 4..512
		return 1<<shift + r.Intn(1<<shift)
	}
	randDist := func() int {
		shift := uint(r.Intn(15)) // 1..32768
		return 1<<shift + r.Intn(1<<shift)
	}
	b = append(b, r.Bytes(randLen())...)
	for len(b) < n {
		switch p := r.Intn(10); {
		case p < 1:
			b = append(b, r.Bytes(randLen())...)
		default:
			d, l := randDist(), randLen()
			if d > len(b) {
				d = len(b)
			}
			for i := 0; i < l; i++ {
				b = append(b, b[len(b)-d])
			}
		}
	}
	return b[:n]
}

// Digits returns the decimal digits of a long pseudo-random number,
// an input with a tiny alphabet and no exploitable context.
func Digits(n int) []byte {
	r := NewRand(2)
	b := make([]byte, n)
	for i := range b {
		b[i] = '0' + byte(r.Intn(10))
	}
	return b
}

var words = strings.Fields(`the of and to a in that it was he i his you for
	had is with she as on at by be not her but my have which they this all from
	so one were we me would there their been an him said no or are if them
	when what could like man time up out about into tom huck river raft widow
	fence judge island cave village steamboat night morning said says well`)

// Text returns prose-like ASCII built from a small English vocabulary.
func Text(n int) []byte {
	r := NewRand(3)
	var sb strings.Builder
	for sb.Len() < n {
		for i, cnt := 0, 4+r.Intn(12); i < cnt; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(words[r.Intn(len(words))])
		}
		sb.WriteString(".\n")
	}
	return []byte(sb.String()[:n])
}

// Binary returns structured records: small integers, flags and padding in
// fixed-size little-endian fields, resembling an executable's data section.
func Binary(n int) []byte {
	r := NewRand(4)
	b := make([]byte, 0, n+16)
	for len(b) < n {
		v := r.Intn(1 << uint(r.Intn(24)))
		b = append(b, byte(v), byte(v>>8), byte(v>>16), 0)
		b = append(b, byte(r.Intn(4)), 0, 0, 0)
		if r.Intn(8) == 0 {
			b = append(b, make([]byte, 8+r.Intn(32))...)
		}
	}
	return b[:n]
}
