// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bzip2 implements the BZip2 compressed data format.
//
// A bzip2 stream is a sequence of independently compressed blocks.
// Each block passes through the following transforms, in order:
// run-length pre-coding (RLE1), the Burrows-Wheeler transform (BWT),
// move-to-front (MTF), zero-run coding (RLE2) and canonical prefix coding
// with up to six tables selected per group of 50 symbols.
//
// Besides the streaming Reader and Writer, the package exposes blocks as
// standalone Frames through Compress and Decompress, which can process
// blocks concurrently.
//
// Canonical C implementation:
//	http://bzip.org
package bzip2

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/blocksort/compress/internal/errors"
)

// There does not exist a formal specification of the BZip2 format. As such,
// much of this work is derived by either reverse engineering the original C
// source code or using secondary sources.
//
// Outputs of this package are checked against the decoder in the Go standard
// library, and the decoder is fuzzed to ensure that malformed inputs are
// reported as errors rather than panics.

const (
	hdrMagic = 0x425a         // Hex of "BZ"
	blkMagic = 0x314159265359 // BCD of PI
	endMagic = 0x177245385090 // BCD of sqrt(PI)

	magicBits = 48

	blockSizeUnit = 100000 // Block size multiplier per level
)

const (
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = 9
)

func errorf(c int, f string, a ...interface{}) error {
	return errors.Error{Code: c, Pkg: "bzip2", Msg: fmt.Sprintf(f, a...)}
}

func panicf(c int, f string, a ...interface{}) {
	errors.Panic(errorf(c, f, a...))
}

var (
	errClosed = errorf(errors.Closed, "")
)

// maxBlockSize reports the maximum number of BWT symbols of a block.
func maxBlockSize(level int) int {
	return blockSizeUnit * level
}

// maxRLESize reports the maximum number of RLE1 bytes the encoder packs into
// one block. The margin matches the C encoder, which stops filling a block
// slightly before the decoder's limit.
func maxRLESize(level int) int {
	return maxBlockSize(level) - 19
}

// checkLevel validates a compression level, mapping zero to the default.
func checkLevel(level int) (int, error) {
	switch {
	case level == 0:
		return DefaultCompression, nil
	case level < BestSpeed || level > BestCompression:
		return 0, errorf(errors.Invalid, "invalid compression level: %d", level)
	}
	return level, nil
}

// loggerOrDiscard replaces the zero Logger with one that discards.
func loggerOrDiscard(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log
}
