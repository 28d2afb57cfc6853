// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"bytes"
	"io"
)

// The in-memory readers that bzip2 streams usually arrive in are wrapped and
// extended to satisfy the compress.BufferedReader interface, so that the bit
// Reader can refill its buffer with Peek instead of one ReadByte per byte.

// bufferReader extends a bytes.Buffer, whose unread bytes are already in
// memory and can be handed out directly.
type bufferReader struct {
	*bytes.Buffer
}

func (r *bufferReader) Buffered() int {
	return r.Len()
}

func (r *bufferReader) Peek(n int) ([]byte, error) {
	b := r.Bytes()
	if len(b) < n {
		return b, io.EOF
	}
	return b[:n], nil
}

func (r *bufferReader) Discard(n int) (int, error) {
	b := r.Next(n)
	if len(b) < n {
		return len(b), io.EOF
	}
	return n, nil
}

// seekReaderAt is implemented by both bytes.Reader and strings.Reader.
type seekReaderAt interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	Len() int
}

// peekReader extends a seekReaderAt by copying windows of the remaining
// input into a local array with ReadAt, leaving the seek position untouched
// until Discard is called.
type peekReader struct {
	seekReaderAt
	pos int64  // Seek position that buf starts at
	buf []byte // Valid window of arr
	arr [512]byte
}

func (r *peekReader) Buffered() int {
	if r.Len() > len(r.buf) {
		return len(r.buf)
	}
	return r.Len()
}

func (r *peekReader) Peek(n int) ([]byte, error) {
	if n > len(r.arr) {
		return nil, io.ErrShortBuffer
	}

	// Slide the window forward if the reader moved within it.
	pos, _ := r.Seek(0, io.SeekCurrent)
	if off := pos - r.pos; off > 0 && off < int64(len(r.buf)) {
		r.buf, r.pos = r.buf[off:], pos
	}
	if len(r.buf) >= n && r.pos == pos {
		return r.buf[:n], nil
	}

	// Refill the window from the current position.
	cnt, err := r.ReadAt(r.arr[:], pos)
	r.buf, r.pos = r.arr[:cnt], pos
	if cnt < n {
		return r.arr[:cnt], err
	}
	return r.arr[:n], nil
}

func (r *peekReader) Discard(n int) (int, error) {
	var err error
	if n > r.Len() {
		n, err = r.Len(), io.EOF
	}
	r.Seek(int64(n), io.SeekCurrent)
	return n, err
}
