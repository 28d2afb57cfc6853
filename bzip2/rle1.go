// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"io"

	"github.com/blocksort/compress/internal/errors"
)

// rleDone is a special "error" to indicate that the RLE stage is done.
var rleDone = errorf(errors.Unknown, "RLE1 stage is completed")

// runLengthEncoding implements the first RLE stage of bzip2. Every sequence
// of 4..255 duplicated bytes is replaced by only the first 4 bytes, and a
// single byte representing the repeat length. Similar to the C bzip2
// implementation, the encoder will always terminate repeat sequences with a
// count (even if it is the end of the buffer), and it will also never produce
// run lengths of 256..259.
//
// As an encoder, Write fills the buffer given to Init and returns rleDone
// once the next byte no longer fits. As a decoder, Read expands the buffer
// given to Init.
type runLengthEncoding struct {
	buf     []byte
	idx     int
	lastVal byte
	lastCnt int
	repCnt  int // Decoder only; pending copies of lastVal
}

func (rle *runLengthEncoding) Init(buf []byte) {
	*rle = runLengthEncoding{buf: buf}
}

func (rle *runLengthEncoding) Write(buf []byte) (int, error) {
	for i, b := range buf {
		if rle.lastCnt == 0 || rle.lastVal != b {
			rle.lastCnt = 0
		}
		switch rle.lastCnt++; {
		case rle.lastCnt < 4:
			if rle.idx >= len(rle.buf) {
				return i, rleDone
			}
			rle.buf[rle.idx] = b
			rle.idx++
		case rle.lastCnt == 4:
			if rle.idx+1 >= len(rle.buf) {
				return i, rleDone
			}
			rle.buf[rle.idx] = b
			rle.buf[rle.idx+1] = 0
			rle.idx += 2
		case rle.lastCnt < 256:
			rle.buf[rle.idx-1]++
		default:
			if rle.idx >= len(rle.buf) {
				return i, rleDone
			}
			rle.lastCnt = 1
			rle.buf[rle.idx] = b
			rle.idx++
		}
		rle.lastVal = b
	}
	return len(buf), nil
}

func (rle *runLengthEncoding) Read(buf []byte) (int, error) {
	var n int
	for n < len(buf) {
		if rle.repCnt > 0 {
			buf[n] = rle.lastVal
			rle.repCnt--
			n++
			continue
		}
		if rle.idx >= len(rle.buf) {
			break
		}
		b := rle.buf[rle.idx]
		rle.idx++
		if rle.lastCnt == 4 {
			rle.repCnt = int(b)
			rle.lastCnt = 0
			continue
		}
		if rle.lastCnt == 0 || rle.lastVal != b {
			rle.lastCnt = 0
		}
		rle.lastCnt++
		rle.lastVal = b
		buf[n] = b
		n++
	}
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Bytes returns the encoded output.
func (rle *runLengthEncoding) Bytes() []byte { return rle.buf[:rle.idx] }

// Done reports whether the decoder has emitted all of its output.
func (rle *runLengthEncoding) Done() bool {
	return rle.repCnt == 0 && rle.idx >= len(rle.buf)
}
