// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"io"

	"github.com/go-logr/logr"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/prefix"
)

type ReaderConfig struct {
	// Concurrency is the number of frames that Decompress decodes in
	// parallel. Values of zero or less use GOMAXPROCS.
	// The streaming Reader always decodes one block at a time.
	Concurrency int

	// ContinueOnError makes Decompress decode every frame, skipping over
	// the failed ones, and report all failures together.
	// By default, Decompress stops at the first failed frame.
	ContinueOnError bool

	// Logger receives a record per decoded block at verbosity 1.
	Logger logr.Logger

	_ struct{} // Blank field to prevent unkeyed struct literals
}

// Stats describes the structure of the input consumed by a Reader.
type Stats struct {
	Streams      int      // Number of complete streams
	Blocks       int      // Number of blocks read
	BlockOffsets []int64  // Bit offset of every block magic within the input
	BlockCRCs    []uint32 // Stored checksum of every block
	StreamCRCs   []uint32 // Stored checksum of every complete stream
}

type Reader struct {
	InputOffset  int64 // Total number of bytes read from underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	rd       prefix.Reader
	err      error
	level    int       // The current compression level; zero between streams
	rdHdrFtr int       // Number of times we read the stream header and footer
	blkIdx   int       // Index of the current block within its stream
	inBlk    bool      // Is a block currently being emitted?
	blkCRC   crcEngine // Checksum of the emitted block content
	wantCRC  uint32    // Stored checksum of the current block
	endCRC   uint32    // Checksum of all blocks using bzip2's custom method

	dec   blockDecoder
	rle   runLengthEncoding
	log   logr.Logger
	stats Stats
}

func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	zr := new(Reader)
	if conf != nil {
		zr.log = conf.Logger
	}
	zr.log = loggerOrDiscard(zr.log)
	zr.Reset(r)
	return zr, nil
}

func (zr *Reader) Reset(r io.Reader) error {
	*zr = Reader{
		rd:  zr.rd,
		dec: zr.dec,
		log: zr.log,
	}
	zr.rd.Init(r, true)
	return nil
}

func (zr *Reader) Read(buf []byte) (int, error) {
	for {
		cnt, _ := zr.rle.Read(buf)
		if cnt > 0 {
			zr.blkCRC.update(buf[:cnt])
			zr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if zr.err != nil || len(buf) == 0 {
			return 0, zr.err
		}

		// Perform next step in decompression process.
		zr.err = zr.step()
		zr.InputOffset = zr.rd.BitsRead() / 8
	}
}

// step verifies the block just emitted and then reads the next block or
// stream footer.
func (zr *Reader) step() (err error) {
	defer func() {
		if err != nil && err != io.EOF && zr.inBlk {
			err = &BlockError{Index: zr.blkIdx, Err: err}
		}
	}()
	defer errors.Recover(&err)

	if zr.inBlk {
		if zr.blkCRC.finalize() != zr.wantCRC {
			panicf(errors.Checksum, "mismatching block checksum")
		}
		zr.endCRC = streamCRC(zr.endCRC, zr.wantCRC)
		zr.inBlk = false
		zr.blkIdx++
	}

	if zr.level == 0 {
		if zr.rdHdrFtr > 0 {
			// Multiple bzip2 streams may be concatenated together.
			if err := zr.rd.PullBits(8); err != nil {
				if errors.IsTruncated(err) {
					return io.EOF
				}
				return err
			}
		}
		zr.level = readStreamHeader(&zr.rd)
		zr.endCRC, zr.blkIdx = 0, 0
	}

	start := zr.rd.BitsRead()
	switch magic := readMagic(&zr.rd); magic {
	case blkMagic:
		zr.inBlk = true
		buf, bi := zr.dec.ReadBlock(&zr.rd, maxBlockSize(zr.level))
		zr.dec.Finish(buf, bi.Ptr)
		zr.rle.Init(buf)
		zr.blkCRC.reset()
		zr.wantCRC = bi.CRC

		zr.stats.Blocks++
		zr.stats.BlockOffsets = append(zr.stats.BlockOffsets, start)
		zr.stats.BlockCRCs = append(zr.stats.BlockCRCs, bi.CRC)
		zr.log.V(1).Info("block decoded", append([]interface{}{"index", zr.blkIdx}, bi.keysAndValues()...)...)
	case endMagic:
		if crc := uint32(zr.rd.ReadBits(32)); crc != zr.endCRC {
			panicf(errors.Checksum, "mismatching stream checksum: got 0x%08x, want 0x%08x", crc, zr.endCRC)
		}
		zr.rd.ReadPads()
		zr.level = 0
		zr.rdHdrFtr++

		zr.stats.Streams++
		zr.stats.StreamCRCs = append(zr.stats.StreamCRCs, zr.endCRC)
		zr.log.V(1).Info("stream decoded", "blocks", zr.blkIdx, "crc", zr.endCRC)
	default:
		panicf(errors.Corrupted, "invalid block or footer magic: 0x%012x", magic)
	}
	return nil
}

// Stats reports the structure of the input consumed so far.
func (zr *Reader) Stats() Stats {
	return zr.stats
}

func (zr *Reader) Close() error {
	if zr.err == io.EOF || errors.IsClosed(zr.err) {
		zr.rle.Init(nil) // Make sure future reads fail
		zr.err = errClosed
		return nil
	}
	return zr.err // Return the persistent error
}
