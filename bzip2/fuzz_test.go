// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"io"
	"testing"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/testutil"
)

func FuzzDecompress(f *testing.F) {
	f.Add(testutil.MustDecodeHex("425a683917724538509000000000"))
	f.Add(testutil.MustDecodeHex("425a6839314159265359efb6ec0100000181003001200030cc0c7a885e2ee48a70a121df6dd802"))
	f.Fuzz(func(t *testing.T, input []byte) {
		rd, err := NewReader(bytes.NewReader(input), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := io.Copy(io.Discard, rd); err != nil {
			if !errors.IsTruncated(err) && !errors.IsCorrupted(err) && !errors.IsChecksum(err) &&
				!errors.IsMalformed(err) && !errors.IsDeprecated(err) {
				t.Fatalf("unexpected error class: %v", err)
			}
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte(""), 1)
	f.Add([]byte("banana"), 9)
	f.Add([]byte("AAAAAAAAAA"), 5)
	f.Fuzz(func(t *testing.T, input []byte, level int) {
		if level < BestSpeed || level > BestCompression {
			t.Skip()
		}
		var buf bytes.Buffer
		wr, err := NewWriterLevel(&buf, level)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := wr.Write(input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := wr.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rd, err := NewReader(&buf, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output, err := io.ReadAll(rd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(input, output) {
			t.Fatalf("output data mismatch")
		}
	})
}
