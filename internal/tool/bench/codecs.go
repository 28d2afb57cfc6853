// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bench

import (
	stdbzip2 "compress/bzip2"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/blocksort/compress/bzip2"
)

// Codec names. The "bs" codec is the bzip2 package of this module.
const (
	CodecBS  = "bs"  // github.com/blocksort/compress
	CodecStd = "std" // Go standard library
	CodecKP  = "kp"  // github.com/klauspost/compress
	CodecUZ  = "uz"  // github.com/ulikunitz/xz
)

func init() {
	RegisterEncoder(FormatBZ2, CodecBS,
		func(w io.Writer, lvl int) io.WriteCloser {
			zw, err := bzip2.NewWriterLevel(w, lvl)
			if err != nil {
				panic(err)
			}
			return zw
		})
	RegisterDecoder(FormatBZ2, CodecBS,
		func(r io.Reader) io.ReadCloser {
			zr, err := bzip2.NewReader(r, nil)
			if err != nil {
				panic(err)
			}
			return zr
		})
	RegisterDecoder(FormatBZ2, CodecStd,
		func(r io.Reader) io.ReadCloser {
			return io.NopCloser(stdbzip2.NewReader(r))
		})

	RegisterEncoder(FormatFlate, CodecKP,
		func(w io.Writer, lvl int) io.WriteCloser {
			zw, err := flate.NewWriter(w, lvl)
			if err != nil {
				panic(err)
			}
			return zw
		})
	RegisterDecoder(FormatFlate, CodecKP,
		func(r io.Reader) io.ReadCloser {
			return flate.NewReader(r)
		})

	RegisterEncoder(FormatZstd, CodecKP,
		func(w io.Writer, lvl int) io.WriteCloser {
			zw, err := zstd.NewWriter(w,
				zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(lvl)),
				zstd.WithEncoderConcurrency(1))
			if err != nil {
				panic(err)
			}
			return zw
		})
	RegisterDecoder(FormatZstd, CodecKP,
		func(r io.Reader) io.ReadCloser {
			zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(err)
			}
			return zr.IOReadCloser()
		})

	RegisterEncoder(FormatXZ, CodecUZ,
		func(w io.Writer, lvl int) io.WriteCloser {
			conf := xz.WriterConfig{DictCap: 1 << uint(16+lvl)}
			zw, err := conf.NewWriter(w)
			if err != nil {
				panic(err)
			}
			return zw
		})
	RegisterDecoder(FormatXZ, CodecUZ,
		func(r io.Reader) io.ReadCloser {
			zr, err := xz.NewReader(r)
			if err != nil {
				panic(err)
			}
			return io.NopCloser(zr)
		})
}
