// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"testing"

	"go.uber.org/goleak"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// A single block holding the byte 0x00, coded by hand.
const zeroBlockBits = `
	H24:425a68 H8:39 # Stream magic "BZh" and level '9'
	H48:314159265359 # Block magic
	H32:b1f7404b     # Block CRC
	0                # Randomized block
	D24:%d           # Origin pointer
	H16:8000 H16:8000 # Used bytes: only 0x00
	D3:2 D15:1 0     # Two trees, one selector
	D5:1 0 10 0 0    # Tree 0 lengths: {1, 2, 2}
	D5:1 0 10 0 0    # Tree 1 lengths: {1, 2, 2}
	0 11             # RUNA, EOB
	H48:177245385090 # Footer magic
	H32:b1f7404b     # Stream CRC
`

func TestRoundTrip(t *testing.T) {
	for _, name := range testutil.CorpusNames() {
		for _, n := range []int{0, 1, 1e3, 1e5 + 1} {
			for _, lvl := range []int{1, 6, 9} {
				name, input := fmt.Sprintf("%s:%d:%d", name, n, lvl), testutil.Corpus[name](n)
				t.Run(name, func(t *testing.T) {
					var buf bytes.Buffer
					wr, err := NewWriter(&buf, &WriterConfig{Level: lvl, Concurrency: 2})
					if err != nil {
						t.Fatalf("NewWriter error: got %v", err)
					}
					cnt, err := io.Copy(wr, bytes.NewReader(input))
					if err != nil {
						t.Errorf("write error: got %v", err)
					}
					if cnt != int64(len(input)) {
						t.Errorf("write count mismatch: got %d, want %d", cnt, len(input))
					}
					if err := wr.Close(); err != nil {
						t.Errorf("close error: got %v", err)
					}
					if wr.OutputOffset != int64(buf.Len()) {
						t.Errorf("output offset mismatch: got %d, want %d", wr.OutputOffset, buf.Len())
					}

					rd, err := NewReader(bytes.NewReader(buf.Bytes()), nil)
					if err != nil {
						t.Fatalf("NewReader error: got %v", err)
					}
					output, err := io.ReadAll(rd)
					if err != nil {
						t.Errorf("read error: got %v", err)
					}
					if err := rd.Close(); err != nil {
						t.Errorf("close error: got %v", err)
					}
					if !bytes.Equal(output, input) {
						t.Errorf("output data mismatch")
					}

					// The standard library must agree with the output.
					output, err = io.ReadAll(bzip2.NewReader(bytes.NewReader(buf.Bytes())))
					if err != nil {
						t.Errorf("standard library read error: got %v", err)
					}
					if !bytes.Equal(output, input) {
						t.Errorf("standard library output data mismatch")
					}
				})
			}
		}
	}
}

func TestReader(t *testing.T) {
	var vectors = []struct {
		desc   string
		input  []byte
		output []byte
		check  func(error) bool
	}{{
		desc:  "empty input",
		input: nil,
		check: errors.IsTruncated,
	}, {
		desc:  "empty stream",
		input: testutil.MustDecodeHex("425a683917724538509000000000"),
	}, {
		desc:  "empty stream with mismatching checksum",
		input: testutil.MustDecodeHex("425a683917724538509000000001"),
		check: errors.IsChecksum,
	}, {
		desc:  "invalid stream magic",
		input: testutil.MustDecodeHex("425b683917724538509000000000"),
		check: errors.IsMalformed,
	}, {
		desc:  "bzip1 stream",
		input: testutil.MustDecodeHex("425a303917724538509000000000"),
		check: errors.IsDeprecated,
	}, {
		desc:  "invalid level",
		input: testutil.MustDecodeHex("425a683017724538509000000000"),
		check: errors.IsMalformed,
	}, {
		desc:  "header only",
		input: testutil.MustDecodeHex("425a6839"),
		check: errors.IsTruncated,
	}, {
		desc:  "invalid block magic",
		input: testutil.MustDecodeHex("425a683931415926535a00000000"),
		check: errors.IsCorrupted,
	}, {
		desc:   "banana",
		input:  testutil.MustDecodeHex("425a6839314159265359efb6ec0100000181003001200030cc0c7a885e2ee48a70a121df6dd802"),
		output: []byte("banana"),
	}, {
		desc:   "short run",
		input:  testutil.MustDecodeHex("425a6839314159265359a2f84f0e00000244000100200020002100820b177245385090a2f84f0e"),
		output: []byte("AAAAAAAAAA"),
	}, {
		desc:   "greeting",
		input:  testutil.MustDecodeHex("425a68393141592653595188d0790000025580001060040040060490802000220683208069a6891668ea41bb3bc5dc914e14241462341e40"),
		output: []byte("Hello, world!\n"),
	}, {
		desc: "two concatenated streams",
		input: testutil.MustDecodeHex("425a6839314159265359efb6ec0100000181003001200030cc0c7a885e2ee48a70a121df6dd802" +
			"425a6839314159265359a2f84f0e00000244000100200020002100820b177245385090a2f84f0e"),
		output: []byte("bananaAAAAAAAAAA"),
	}, {
		desc:   "hand coded block",
		input:  testutil.MustDecodeBits(fmt.Sprintf(zeroBlockBits, 0)),
		output: []byte{0},
	}, {
		desc:  "origin pointer out of range",
		input: testutil.MustDecodeBits(fmt.Sprintf(zeroBlockBits, 1)),
		check: errors.IsCorrupted,
	}, {
		desc: "randomized block",
		input: testutil.MustDecodeBits(`
			H24:425a68 H8:39 H48:314159265359 H32:00000000
			1 D24:0
		`),
		check: errors.IsDeprecated,
	}, {
		desc: "incomplete prefix tree",
		input: testutil.MustDecodeBits(`
			H24:425a68 H8:39 H48:314159265359 H32:00000000
			0 D24:0 H16:8000 H16:8000
			D3:2 D15:1 0
			D5:2 0 0 0 # Lengths {2, 2, 2}
			D5:2 0 0 0
		`),
		check: errors.IsCorrupted,
	}, {
		desc: "too many prefix trees",
		input: testutil.MustDecodeBits(`
			H24:425a68 H8:39 H48:314159265359 H32:00000000
			0 D24:0 H16:8000 H16:8000
			D3:7
		`),
		check: errors.IsCorrupted,
	}, {
		desc: "no used bytes",
		input: testutil.MustDecodeBits(`
			H24:425a68 H8:39 H48:314159265359 H32:00000000
			0 D24:0 H16:0000
		`),
		check: errors.IsCorrupted,
	}}

	for i, v := range vectors {
		rd, err := NewReader(bytes.NewReader(v.input), nil)
		if err != nil {
			t.Errorf("test %d (%s), NewReader error: got %v", i, v.desc, err)
			continue
		}
		output, err := io.ReadAll(rd)
		if v.check == nil {
			if err != nil {
				t.Errorf("test %d (%s), unexpected error: %v", i, v.desc, err)
			}
			if !bytes.Equal(output, v.output) {
				t.Errorf("test %d (%s), output mismatch:\ngot  %q\nwant %q", i, v.desc, output, v.output)
			}
		} else if !v.check(err) {
			t.Errorf("test %d (%s), mismatching error: got %v", i, v.desc, err)
		}
	}
}

func TestReaderStats(t *testing.T) {
	var buf bytes.Buffer
	for _, s := range []string{"banana", "AAAAAAAAAA"} {
		wr, err := NewWriterLevel(&buf, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		io.WriteString(wr, s)
		if err := wr.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rd, err := NewReader(&buf, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := io.ReadAll(rd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := rd.Stats()
	if st.Streams != 2 || st.Blocks != 2 {
		t.Errorf("stats mismatch: got %d streams and %d blocks, want 2 and 2", st.Streams, st.Blocks)
	}
	if len(st.BlockOffsets) != 2 || st.BlockOffsets[0] != 32 {
		t.Errorf("block offsets mismatch: got %v", st.BlockOffsets)
	}
	if want := []uint32{0xefb6ec01, 0xa2f84f0e}; len(st.BlockCRCs) != 2 || st.BlockCRCs[0] != want[0] || st.BlockCRCs[1] != want[1] {
		t.Errorf("block checksums mismatch: got %08x, want %08x", st.BlockCRCs, want)
	}
}

func TestWriterErrors(t *testing.T) {
	if _, err := NewWriterLevel(io.Discard, 10); !errors.IsInvalid(err) {
		t.Errorf("mismatching error: got %v, want invalid", err)
	}
	if _, err := NewWriterLevel(io.Discard, -1); !errors.IsInvalid(err) {
		t.Errorf("mismatching error: got %v, want invalid", err)
	}

	// Errors from the underlying io.Writer are persistent.
	errWrite := fmt.Errorf("write failure")
	wr, err := NewWriterLevel(&testutil.BuggyWriter{W: io.Discard, N: 10, Err: errWrite}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wr.Write(testutil.Corpus["twain.txt"](3e5))
	if err := wr.Close(); err != errWrite {
		t.Errorf("mismatching error: got %v, want %v", err, errWrite)
	}
	if _, err := wr.Write([]byte("more")); err != errWrite {
		t.Errorf("mismatching error: got %v, want %v", err, errWrite)
	}
}

func TestCRC(t *testing.T) {
	var vectors = []struct {
		input string
		crc   uint32
	}{
		{input: "", crc: 0x00000000},
		{input: "\x00", crc: 0xb1f7404b},
		{input: "banana", crc: 0xefb6ec01},
		{input: "123456789", crc: 0xfc891918},
	}

	for i, v := range vectors {
		if crc := updateCRC(0, []byte(v.input)); crc != v.crc {
			t.Errorf("test %d, checksum mismatch: got 0x%08x, want 0x%08x", i, crc, v.crc)
		}

		// Checksums of pieces must combine to the whole.
		for j := 0; j <= len(v.input); j++ {
			crc1 := updateCRC(0, []byte(v.input[:j]))
			crc2 := updateCRC(0, []byte(v.input[j:]))
			if crc := combineCRC(crc1, crc2, int64(len(v.input)-j)); crc != v.crc {
				t.Errorf("test %d:%d, combined checksum mismatch: got 0x%08x, want 0x%08x", i, j, crc, v.crc)
			}
		}
	}

	// The checksum depends on the order of the data.
	b1, b2 := []byte("block one"), []byte("second block")
	crc12 := updateCRC(updateCRC(0, b1), b2)
	crc21 := updateCRC(updateCRC(0, b2), b1)
	if crc12 == crc21 {
		t.Errorf("checksum ignores order: got 0x%08x for both", crc12)
	}
	if crc := updateCRC(0, append(append([]byte(nil), b1...), b2...)); crc != crc12 {
		t.Errorf("incremental checksum mismatch: got 0x%08x, want 0x%08x", crc12, crc)
	}
}
