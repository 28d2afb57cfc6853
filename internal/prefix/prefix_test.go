// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"io"
	"math"
	"sort"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/blocksort/compress"
	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/testutil"
)

const testSize = 1000

var testCodes = func() (codes PrefixCodes) {
	for i := 0; i < 100; i++ {
		codes = append(codes, PrefixCode{Sym: uint32(len(codes)), Cnt: 0})
	}
	for i := 0; i < 25; i++ {
		codes = append(codes, PrefixCode{Sym: uint32(len(codes)), Cnt: 10})
	}
	for i := 0; i < 5; i++ {
		codes = append(codes, PrefixCode{Sym: uint32(len(codes)), Cnt: 1000})
	}
	codes.SortByCount()
	if err := GenerateLengths(codes, 20); err != nil {
		panic(err)
	}
	codes.SortBySymbol()
	if err := GeneratePrefixes(codes); err != nil {
		panic(err)
	}
	return codes
}()

var testReaders = map[string]func([]byte) io.Reader{
	"io.Reader": func(b []byte) io.Reader {
		return struct{ io.Reader }{bytes.NewReader(b)}
	},
	"bytes.Buffer": func(b []byte) io.Reader {
		return bytes.NewBuffer(b)
	},
	"bytes.Reader": func(b []byte) io.Reader {
		return bytes.NewReader(b)
	},
	"string.Reader": func(b []byte) io.Reader {
		return strings.NewReader(string(b))
	},
	"compress.ByteReader": func(b []byte) io.Reader {
		return struct{ compress.ByteReader }{bytes.NewReader(b)}
	},
	"compress.BufferedReader": func(b []byte) io.Reader {
		return struct{ compress.BufferedReader }{bufio.NewReader(bytes.NewReader(b))}
	},
}

var testEndians = map[string]bool{"littleEndian": false, "bigEndian": true}

// writeRandom writes a pseudo-random mix of bits, symbols and aligned bytes
// that readRandom can verify given the same seed.
func writeRandom(t *testing.T, bw *Writer, pe *Encoder, seed int) {
	r := testutil.NewRand(seed)
	for j := 0; bw.BitsWritten() < 8*testSize; j++ {
		switch j % 3 {
		case 0:
			bw.WritePads(0)
			b := r.Bytes(r.Intn(16))
			if cnt, err := bw.Write(b); cnt != len(b) || err != nil {
				t.Fatalf("unexpected Write result: (%d, %v)", cnt, err)
			}
		case 1:
			nb := uint(r.Intn(33))
			val := uint(r.Int() & (1<<nb - 1))
			if !bw.TryWriteBits(val, nb) {
				bw.WriteBits(val, nb)
			}
		case 2:
			sym := uint(testCodes[r.Intn(len(testCodes))].Sym)
			if !bw.TryWriteSymbol(sym, pe) {
				bw.WriteSymbol(sym, pe)
			}
		}
	}
}

func TestReaderWriter(t *testing.T) {
	var pe Encoder
	var pd Decoder
	pe.Init(testCodes)
	pd.Init(testCodes)

	var i int
	for ne, endian := range testEndians {
		var bw Writer
		wr := new(bytes.Buffer)
		bw.Init(wr, endian)
		writeRandom(t, &bw, &pe, i)
		bw.WritePads(0)
		nbits := bw.BitsWritten()
		ofs, err := bw.Flush()
		if err != nil {
			t.Fatalf("test %d, %s, unexpected flush error: %v", i, ne, err)
		}
		if ofs != int64(wr.Len()) || 8*ofs != nbits {
			t.Errorf("test %d, %s, offset mismatch: got %d, want %d", i, ne, ofs, wr.Len())
		}
		if bw.numBits != 0 || bw.cntBuf != 0 {
			t.Errorf("test %d, %s, buffers not drained: %d bits, %d bytes", i, ne, bw.numBits, bw.cntBuf)
		}

		for nr, newReader := range testReaders {
			var br Reader
			br.Init(newReader(wr.Bytes()), endian)
			if err := readRandom(&br, &pd, i); err != nil {
				t.Errorf("test %d, %s %s, %v", i, ne, nr, err)
				continue
			}
			if pads := br.ReadPads(); pads != 0 {
				t.Errorf("test %d, %s %s, bit padding mismatch: got %d, want 0", i, ne, nr, pads)
			}
			if got := br.BitsRead(); got != nbits {
				t.Errorf("test %d, %s %s, bits read mismatch: got %d, want %d", i, ne, nr, got, nbits)
			}
			ofs, err := br.Flush()
			if ofs != int64(wr.Len()) || err != nil {
				t.Errorf("test %d, %s %s, flush mismatch: got (%d, %v), want (%d, nil)", i, ne, nr, ofs, err, wr.Len())
			}
		}
		i++
	}
}

func readRandom(br *Reader, pd *Decoder, seed int) (err error) {
	defer errors.Recover(&err)
	r := testutil.NewRand(seed)
	var nbits int64
	for j := 0; nbits < 8*testSize; j++ {
		switch j % 3 {
		case 0:
			if pads := br.ReadPads(); pads != 0 {
				return stderrors.New("non-zero padding")
			}
			want := r.Bytes(r.Intn(16))
			got := make([]byte, len(want))
			if _, err := io.ReadFull(br, got); err != nil {
				return err
			}
			if !bytes.Equal(got, want) {
				return stderrors.New("read bytes mismatch")
			}
		case 1:
			nb := uint(r.Intn(33))
			want := uint(r.Int() & (1<<nb - 1))
			got, ok := br.TryReadBits(nb)
			if !ok {
				got = br.ReadBits(nb)
			}
			if got != want {
				return stderrors.New("read bits mismatch")
			}
		case 2:
			want := uint(testCodes[r.Intn(len(testCodes))].Sym)
			got, ok := br.TryReadSymbol(pd)
			if !ok {
				got = br.ReadSymbol(pd)
			}
			if got != want {
				return stderrors.New("read symbol mismatch")
			}
		}
		nbits = br.BitsRead()
	}
	return nil
}

func TestBitOrder(t *testing.T) {
	var vectors = []struct {
		bigEndian bool
		vals      []uint // Pairs of value and bit-length
		output    []byte
	}{
		{false, []uint{0x5, 3}, []byte{0x05}},
		{true, []uint{0x5, 3}, []byte{0xa0}},
		{true, []uint{0x42, 8, 0x5a, 8}, []byte{0x42, 0x5a}},
		{true, []uint{0x1, 1, 0x1, 2, 0x3, 2}, []byte{0xb8}},
		{false, []uint{0x1, 1, 0x1, 2, 0x3, 2}, []byte{0x1b}},
		{true, []uint{0x314159, 24, 0x265359, 24}, []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}},
	}

	for i, v := range vectors {
		var bw Writer
		wr := new(bytes.Buffer)
		bw.Init(wr, v.bigEndian)
		for j := 0; j < len(v.vals); j += 2 {
			bw.WriteBits(v.vals[j], v.vals[j+1])
		}
		bw.WritePads(0)
		if _, err := bw.Flush(); err != nil {
			t.Errorf("test %d, unexpected error: %v", i, err)
			continue
		}
		if got := wr.Bytes(); !bytes.Equal(got, v.output) {
			t.Errorf("test %d, output mismatch:\ngot  %x\nwant %x", i, got, v.output)
		}

		var br Reader
		br.Init(bytes.NewReader(v.output), v.bigEndian)
		for j := 0; j < len(v.vals); j += 2 {
			if got := br.ReadBits(v.vals[j+1]); got != v.vals[j] {
				t.Errorf("test %d, read mismatch: got %#x, want %#x", i, got, v.vals[j])
			}
		}
	}
}

func TestReaderTruncated(t *testing.T) {
	for nr, newReader := range testReaders {
		var br Reader
		br.Init(newReader([]byte{0xff}), true)
		err := func() (err error) {
			defer errors.Recover(&err)
			br.ReadBits(4)
			br.ReadBits(12)
			return nil
		}()
		if !errors.IsTruncated(err) {
			t.Errorf("%s, mismatching error: got %v, want truncation", nr, err)
		}
		if !stderrors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("%s, error does not match io.ErrUnexpectedEOF: %v", nr, err)
		}
	}
}

func TestGenerate(t *testing.T) {
	r := testutil.NewRand(0)
	var makeCodes = func(freqs []uint) PrefixCodes {
		codes := make(PrefixCodes, len(freqs))
		for i, j := range r.Perm(len(freqs)) {
			codes[i] = PrefixCode{Sym: uint32(i), Cnt: uint32(freqs[j])}
		}
		codes.SortByCount()
		return codes
	}

	var vectors = []struct {
		maxBits uint // Maximum prefix bit-length (0 to skip GenerateLengths)
		input   PrefixCodes
		valid   bool
	}{{
		maxBits: 15,
		input:   makeCodes([]uint{}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{0}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{0, 0}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{5, 15}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{1, 1, 2, 4}),
		valid:   true,
	}, {
		maxBits: 2,
		input:   makeCodes([]uint{1, 1, 2, 4}),
		valid:   true,
	}, {
		maxBits: 1,
		input:   makeCodes([]uint{1, 1, 2}),
		valid:   false,
	}, {
		maxBits: 10,
		input:   makeCodes([]uint{2, 2, 2, 2, 5, 5, 5}),
		valid:   true,
	}, {
		maxBits: 7,
		input:   makeCodes([]uint{0, 0, 2, 3, 4, 4, 4, 5, 5, 6, 6, 7, 7, 9, 10, 11, 13, 15}),
		valid:   true,
	}, {
		maxBits: 20,
		input:   makeCodes([]uint{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}),
		valid:   true,
	}, {
		maxBits: 12,
		input:   makeCodes([]uint{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}),
		valid:   true,
	}, {
		maxBits: 20,
		input: makeCodes([]uint{
			1, 1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 4, 4, 6, 6, 7, 7, 8, 8, 9, 9, 11, 11,
			11, 11, 14, 15, 15, 17, 17, 18, 19, 19, 19, 20, 20, 21, 24, 26, 26, 31,
			32, 34, 35, 38, 40, 43, 47, 48, 50, 59, 62, 63, 75, 78, 79, 85, 86, 97,
			100, 100, 102, 114, 119, 128, 128, 139, 153, 166, 170, 174, 182, 184,
			185, 186, 205, 325, 536, 948, 1610, 2555, 2628, 3741,
		}),
		valid: true,
	}, {
		// Input counts are not sorted in ascending order.
		maxBits: 15,
		input: []PrefixCode{
			{Sym: 0, Cnt: 3},
			{Sym: 1, Cnt: 2},
			{Sym: 2, Cnt: 1},
		},
		valid: false,
	}, {
		// Input symbols are not sorted in ascending order.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 2, Len: 1},
			{Sym: 1, Len: 2},
			{Sym: 0, Len: 2},
		},
		valid: false,
	}, {
		// Input symbols are not unique.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 5, Len: 1},
			{Sym: 5, Len: 1},
		},
		valid: false,
	}, {
		// Invalid small tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 500},
		},
		valid: false,
	}, {
		// Some bit-length is too short.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 1},
			{Sym: 1, Len: 2},
			{Sym: 2, Len: 0},
		},
		valid: false,
	}, {
		// Under-subscribed tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 3},
			{Sym: 1, Len: 4},
			{Sym: 2, Len: 3},
		},
		valid: false,
	}, {
		// Over-subscribed tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 1},
			{Sym: 1, Len: 3},
			{Sym: 2, Len: 4},
			{Sym: 3, Len: 3},
			{Sym: 4, Len: 2},
		},
		valid: false,
	}}

	for i, v := range vectors {
		var sum uint32
		var maxLen uint
		var lens []int

		codes := v.input
		if v.maxBits == 0 {
			goto genPrefixes
		}

		if err := GenerateLengths(codes, v.maxBits); err != nil {
			if v.valid {
				t.Errorf("test %d, unexpected failure: %v", i, err)
			}
			continue
		}

		for _, c := range codes {
			if maxLen < uint(c.Len) {
				maxLen = uint(c.Len)
			}
			lens = append(lens, int(c.Len))
			sum += c.Cnt
		}

		if !codes.checkLengths() {
			t.Errorf("test %d, incomplete tree generated", i)
		}
		if !sort.IsSorted(sort.Reverse(sort.IntSlice(lens))) {
			t.Errorf("test %d, bit-lengths are not sorted:\ngot %v", i, lens)
		}
		if maxLen > v.maxBits {
			t.Errorf("test %d, max bit-length exceeded: %d not in 1..%d", i, maxLen, v.maxBits)
		}

		// Compare against the best-case entropy of the input counts.
		if len(codes) >= 4 && sum > 0 {
			var worst, got, best float64
			worst = math.Log2(float64(len(codes)))
			got = float64(codes.Length()) / float64(sum)
			for _, c := range codes {
				if c.Cnt > 0 {
					p := float64(c.Cnt) / float64(sum)
					best += -(p * math.Log2(p))
				}
			}

			if got > worst+1 {
				t.Errorf("test %d, actual entropy worse than worst-case: %0.3f > %0.3f", i, got, worst+1)
			}
			if got < best {
				t.Errorf("test %d, actual entropy better than best-case: %0.3f < %0.3f", i, got, best)
			}
		}
		codes.SortBySymbol()

	genPrefixes:
		if err := GeneratePrefixes(codes); err != nil {
			if v.valid {
				t.Errorf("test %d, unexpected failure: %v", i, err)
			}
			continue
		}

		if !codes.checkPrefixes() {
			t.Errorf("test %d, tree with non-unique prefixes generated", i)
		}
		if !codes.checkCanonical() {
			t.Errorf("test %d, tree with non-canonical prefixes generated", i)
		}
		if !v.valid {
			t.Errorf("test %d, unexpected success", i)
		}
	}
}

func TestGenerateProperty(t *testing.T) {
	const maxBits = 20
	rapid.Check(t, func(t *rapid.T) {
		// Scaled counts give both flat and heavily skewed distributions.
		mants := rapid.SliceOfN(rapid.Uint32Range(1, 255), 2, 258).Draw(t, "mantissas").([]uint32)
		exps := rapid.SliceOfN(rapid.IntRange(0, 16), len(mants), len(mants)).Draw(t, "exponents").([]int)
		var codes PrefixCodes
		for i, m := range mants {
			codes = append(codes, PrefixCode{Sym: uint32(i), Cnt: m << uint(exps[i])})
		}

		codes.SortByCount()
		if err := GenerateLengths(codes, maxBits); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, c := range codes {
			if c.Len < 1 || c.Len > maxBits {
				t.Fatalf("symbol %d, bit-length %d not in 1..%d", c.Sym, c.Len, maxBits)
			}
		}
		if !codes.checkLengths() {
			t.Fatalf("incomplete tree generated")
		}

		codes.SortBySymbol()
		if err := GeneratePrefixes(codes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !codes.checkPrefixes() {
			t.Fatalf("tree with non-unique prefixes generated")
		}
		if !codes.checkCanonical() {
			t.Fatalf("tree with non-canonical prefixes generated")
		}
	})
}

func TestPrefix(t *testing.T) {
	var makeCodes = func(freqs []uint) PrefixCodes {
		codes := make(PrefixCodes, len(freqs))
		for i, n := range freqs {
			codes[i] = PrefixCode{Sym: uint32(i), Cnt: uint32(n)}
		}
		codes.SortByCount()
		if err := GenerateLengths(codes, 20); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		codes.SortBySymbol()
		if err := GeneratePrefixes(codes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return codes
	}

	var vectors = []struct {
		codes PrefixCodes
	}{{
		codes: makeCodes([]uint{0}),
	}, {
		codes: makeCodes([]uint{2, 4, 3, 2, 2, 4}),
	}, {
		codes: makeCodes([]uint{2, 2, 2, 2, 5, 5, 5}),
	}, {
		codes: makeCodes([]uint{100, 101, 102, 103}),
	}, {
		codes: testCodes,
	}, {
		// Sparsely allocated symbols.
		codes: []PrefixCode{
			{Sym: 16, Val: 0, Len: 1},
			{Sym: 32, Val: 1, Len: 2},
			{Sym: 64, Val: 3, Len: 3},
			{Sym: 128, Val: 7, Len: 3},
		},
	}, {
		// Large number of symbols.
		codes: func() PrefixCodes {
			freqs := make([]uint, 4096)
			for i := range freqs {
				freqs[i] = uint(i)
			}
			return makeCodes(freqs)
		}(),
	}, {
		// Maximum bzip2 alphabet where a few symbols dominate.
		codes: func() PrefixCodes {
			freqs := make([]uint, 258)
			for i := range freqs {
				freqs[i] = 1
			}
			freqs[0], freqs[1], freqs[257] = 1<<20, 1<<19, 1
			return makeCodes(freqs)
		}(),
	}}

	for i, v := range vectors {
		// Generate an arbitrary sequence of symbols to encode.
		r := testutil.NewRand(i)
		var syms []uint
		for j := 0; j < 1000; j++ {
			syms = append(syms, uint(v.codes[r.Intn(len(v.codes))].Sym))
		}

		for ne, endian := range testEndians {
			var pe Encoder
			var pd Decoder
			pe.Init(v.codes)
			pd.Init(v.codes)

			var bw Writer
			wr := new(bytes.Buffer)
			bw.Init(wr, endian)
			for _, sym := range syms {
				bw.WriteSymbol(sym, &pe)
			}
			bw.WritePads(0)
			if _, err := bw.Flush(); err != nil {
				t.Fatalf("test %d, %s, unexpected error: %v", i, ne, err)
			}

			var br Reader
			br.Init(bytes.NewReader(wr.Bytes()), endian)
			err := func() (err error) {
				defer errors.Recover(&err)
				for j, want := range syms {
					if got := br.ReadSymbol(&pd); got != want {
						t.Errorf("test %d, %s, symbol %d mismatch: got %d, want %d", i, ne, j, got, want)
						return nil
					}
				}
				return nil
			}()
			if err != nil {
				t.Errorf("test %d, %s, unexpected error: %v", i, ne, err)
			}
		}
	}
}

func TestDecoderCorrupt(t *testing.T) {
	var vectors = []PrefixCodes{
		{{Sym: 0, Len: 3}, {Sym: 1, Len: 4}, {Sym: 2, Len: 3}},
		{{Sym: 0, Len: 1}, {Sym: 1, Len: 1}, {Sym: 2, Len: 1}},
		{{Sym: 0, Len: 2}},
		{{Sym: 1, Len: 1}, {Sym: 0, Len: 1}},
	}
	for i, codes := range vectors {
		err := func() (err error) {
			defer errors.Recover(&err)
			var pd Decoder
			pd.Init(codes)
			return nil
		}()
		if !errors.IsCorrupted(err) {
			t.Errorf("test %d, mismatching error: got %v, want corruption", i, err)
		}
	}
}
