// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"io"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/prefix"
)

// BlockError reports the failure of a single block.
// The Index is the zero-based position of the block within its stream.
type BlockError = errors.BlockError

// Frame is a single compressed block detached from its stream. A frame can
// be decoded on its own and frames can be joined into a stream with
// WriteStream.
type Frame struct {
	// Data holds the bits of the block, starting with the block magic.
	// Bits are packed starting from the most-significant bit of Data[0],
	// and the final byte is padded with zeros.
	Data []byte

	// NumBits is the number of valid bits in Data.
	NumBits int64

	// CRC is the checksum of the uncompressed block content.
	CRC uint32

	// RawSize is the length of the uncompressed block content.
	// It is zero when unknown, as for frames obtained by SplitFrames.
	RawSize int64
}

// readMagic reads a 48-bit block or footer magic.
func readMagic(br *prefix.Reader) uint64 {
	hi := uint64(br.ReadBits(24))
	lo := uint64(br.ReadBits(24))
	return hi<<24 | lo
}

// readStreamHeader reads the "BZh" signature and returns the level.
func readStreamHeader(br *prefix.Reader) int {
	if magic := br.ReadBits(16); magic != hdrMagic {
		panicf(errors.Header, "invalid stream magic: 0x%04x", magic)
	}
	if ver := br.ReadBits(8); ver != 'h' {
		if ver == '0' {
			panicf(errors.Deprecated, "bzip1 format is not supported")
		}
		panicf(errors.Header, "invalid version: %q", ver)
	}
	lvl := int(br.ReadBits(8)) - '0'
	if lvl < BestSpeed || lvl > BestCompression {
		panicf(errors.Header, "invalid block size: %d", lvl*blockSizeUnit)
	}
	return lvl
}

func writeStreamHeader(bw *prefix.Writer, level int) {
	bw.WriteBits(hdrMagic, 16)
	bw.WriteBits('h', 8)
	bw.WriteBits(uint('0'+level), 8)
}

func writeStreamFooter(bw *prefix.Writer, crc uint32) {
	bw.WriteBits(endMagic>>24, 24)
	bw.WriteBits(endMagic&0xffffff, 24)
	bw.WriteBits(uint(crc), 32)
	bw.WritePads(0)
}

// copyBits copies n bits from br to bw.
func copyBits(bw *prefix.Writer, br *prefix.Reader, n int64) {
	for ; n >= 32; n -= 32 {
		bw.WriteBits(br.ReadBits(32), 32)
	}
	if n > 0 {
		bw.WriteBits(br.ReadBits(uint(n)), uint(n))
	}
}

// encodeFrame compresses a single block into a Frame.
func encodeFrame(e *blockEncoder, rle []byte, crc uint32, rawSize int64) (f Frame, bi blockInfo, err error) {
	defer errors.Recover(&err)

	var buf bytes.Buffer
	var bw prefix.Writer
	bw.Init(&buf, true)
	bi = e.Encode(&bw, rle, crc)
	nb := bw.BitsWritten()
	bw.WritePads(0)
	if _, err := bw.Flush(); err != nil {
		return f, bi, err
	}
	return Frame{Data: buf.Bytes(), NumBits: nb, CRC: crc, RawSize: rawSize}, bi, nil
}

// decodeFrame decompresses a single Frame, appending the content to out.
func decodeFrame(d *blockDecoder, out []byte, f Frame) (_ []byte, bi blockInfo, err error) {
	defer errors.Recover(&err)

	var br prefix.Reader
	br.Init(bytes.NewReader(f.Data), true)
	if magic := readMagic(&br); magic != blkMagic {
		panicf(errors.Corrupted, "invalid block magic: 0x%012x", magic)
	}
	buf, bi := d.ReadBlock(&br, maxBlockSize(BestCompression))
	if br.BitsRead() > f.NumBits {
		panicf(errors.Truncated, "block extends past end of frame")
	}
	if bi.CRC != f.CRC {
		panicf(errors.Checksum, "mismatching frame checksum")
	}
	d.Finish(buf, bi.Ptr)

	var rle runLengthEncoding
	rle.Init(buf)
	n := len(out)
	wr := bytes.NewBuffer(out)
	if _, err := io.Copy(wr, &rle); err != nil {
		return out, bi, err
	}
	out = wr.Bytes()
	if crc := updateCRC(0, out[n:]); crc != bi.CRC {
		panicf(errors.Checksum, "mismatching block checksum")
	}
	if f.RawSize > 0 && int64(len(out)-n) != f.RawSize {
		panicf(errors.Corrupted, "block size mismatch: got %d, want %d", len(out)-n, f.RawSize)
	}
	return out, bi, nil
}

// DecodeFrame decompresses a single Frame.
func DecodeFrame(f Frame) ([]byte, error) {
	out, _, err := decodeFrame(new(blockDecoder), nil, f)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SplitFrames parses a complete bzip2 stream into its Frames without fully
// decompressing them. Concatenated streams are supported, in which case the
// frames of all streams are returned in order. The returned level is the
// largest level among the streams, which is sufficient to hold every frame.
//
// The stream checksums are verified, but block checksums can only be
// verified by decoding the frames.
func SplitFrames(stream []byte) (level int, frames []Frame, err error) {
	defer errors.Recover(&err)

	var br prefix.Reader
	var d blockDecoder
	rd := bytes.NewReader(stream)
	br.Init(rd, true)
	for {
		lvl := readStreamHeader(&br)
		if lvl > level {
			level = lvl
		}

		var crc uint32
	blocks:
		for {
			start := br.BitsRead()
			switch magic := readMagic(&br); magic {
			case blkMagic:
				_, bi := d.ReadBlock(&br, maxBlockSize(lvl))
				crc = streamCRC(crc, bi.CRC)
				frames = append(frames, extractFrame(stream, start, br.BitsRead(), bi.CRC))
			case endMagic:
				if got := uint32(br.ReadBits(32)); got != crc {
					panicf(errors.Checksum, "mismatching stream checksum: got 0x%08x, want 0x%08x", got, crc)
				}
				br.ReadPads()
				break blocks
			default:
				panicf(errors.Corrupted, "invalid block or footer magic: 0x%012x", magic)
			}
		}

		if br.BitsRead() >= 8*int64(len(stream)) {
			return level, frames, nil
		}
	}
}

// extractFrame copies the bits of stream within [start, end) into a Frame.
func extractFrame(stream []byte, start, end int64, crc uint32) Frame {
	var br prefix.Reader
	br.Init(bytes.NewReader(stream[start/8:]), true)
	br.ReadBits(uint(start % 8))

	var buf bytes.Buffer
	var bw prefix.Writer
	bw.Init(&buf, true)
	copyBits(&bw, &br, end-start)
	bw.WritePads(0)
	if _, err := bw.Flush(); err != nil {
		errors.Panic(err)
	}
	return Frame{Data: buf.Bytes(), NumBits: end - start, CRC: crc}
}

// WriteStream writes the frames as a single bzip2 stream to w.
// The level must be at least the level the frames were compressed with.
func WriteStream(w io.Writer, level int, frames []Frame) (err error) {
	defer errors.Recover(&err)

	if level, err = checkLevel(level); err != nil {
		return err
	}
	var bw prefix.Writer
	bw.Init(w, true)
	writeStreamHeader(&bw, level)

	var crc uint32
	var br prefix.Reader
	for i, f := range frames {
		if f.NumBits < magicBits || f.NumBits > 8*int64(len(f.Data)) {
			return &BlockError{Index: i, Err: errorf(errors.Invalid, "invalid frame length: %d bits", f.NumBits)}
		}
		br.Init(bytes.NewReader(f.Data), true)
		copyBits(&bw, &br, f.NumBits)
		crc = streamCRC(crc, f.CRC)
	}

	writeStreamFooter(&bw, crc)
	_, err = bw.Flush()
	return err
}

// ContentCRC computes the bzip2 checksum of the concatenated content of
// frames without decompressing them. Every frame must carry its RawSize,
// as the frames returned by Compress do.
func ContentCRC(frames []Frame) uint32 {
	var crc uint32
	for _, f := range frames {
		crc = combineCRC(crc, f.CRC, f.RawSize)
	}
	return crc
}
