// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"io"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/blocksort/compress/internal/errors"
	"github.com/blocksort/compress/internal/prefix"
)

type WriterConfig struct {
	// Level is the compression level in the range [BestSpeed, BestCompression].
	// Each level N uses blocks of N*100000 bytes. Zero selects
	// DefaultCompression.
	Level int

	// Concurrency is the number of blocks compressed in parallel.
	// Values of zero or less use GOMAXPROCS.
	Concurrency int

	// Logger receives a record per encoded block at verbosity 1.
	Logger logr.Logger

	_ struct{} // Blank field to prevent unkeyed struct literals
}

// rawBlock is the RLE1 output of a block awaiting the remaining stages.
type rawBlock struct {
	rle  []byte
	crc  uint32
	size int64
}

type Writer struct {
	InputOffset  int64 // Total number of bytes issued to Write
	OutputOffset int64 // Total number of bytes written to underlying io.Writer

	wr     prefix.Writer
	err    error
	level  int    // The current compression level
	conc   int    // Number of blocks encoded in parallel
	wrHdr  bool   // Have we written the stream header?
	blkIdx int    // Index of the next block to be written
	endCRC uint32 // Checksum of all blocks using bzip2's custom method

	crc     crcEngine // Checksum of the pending block content
	rle     runLengthEncoding
	pending []rawBlock
	free    [][]byte // Recycled RLE1 buffers
	encs    []*blockEncoder
	log     logr.Logger
}

func NewWriter(w io.Writer, conf *WriterConfig) (*Writer, error) {
	var lvl, conc int
	var log logr.Logger
	if conf != nil {
		lvl, conc, log = conf.Level, conf.Concurrency, conf.Logger
	}
	lvl, err := checkLevel(lvl)
	if err != nil {
		return nil, err
	}
	zw := &Writer{level: lvl, conc: concurrency(conc), log: loggerOrDiscard(log)}
	zw.Reset(w)
	return zw, nil
}

// NewWriterLevel is a shorthand for NewWriter with only the level set.
func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriter(w, &WriterConfig{Level: level})
}

func (zw *Writer) Reset(w io.Writer) error {
	*zw = Writer{
		wr:    zw.wr,
		level: zw.level,
		conc:  zw.conc,
		free:  zw.free,
		encs:  zw.encs,
		log:   zw.log,
	}
	zw.wr.Init(w, true)
	zw.rle.Init(zw.newBuffer())
	return nil
}

func (zw *Writer) newBuffer() []byte {
	if n := len(zw.free); n > 0 {
		buf := zw.free[n-1]
		zw.free = zw.free[:n-1]
		return buf
	}
	return make([]byte, maxRLESize(zw.level))
}

func (zw *Writer) Write(buf []byte) (int, error) {
	if zw.err != nil {
		return 0, zw.err
	}

	var total int
	for {
		cnt, err := zw.rle.Write(buf)
		zw.crc.update(buf[:cnt])
		zw.InputOffset += int64(cnt)
		total += cnt
		buf = buf[cnt:]
		if err == nil {
			return total, nil
		}
		if zw.err = zw.flushBlock(false); zw.err != nil {
			return total, zw.err
		}
	}
}

// flushBlock queues the current block, encoding the queue once it holds
// as many blocks as may be encoded in parallel or if force is set.
func (zw *Writer) flushBlock(force bool) error {
	if len(zw.rle.Bytes()) > 0 {
		zw.pending = append(zw.pending, rawBlock{zw.rle.Bytes(), zw.crc.finalize(), zw.crc.n})
		zw.crc.reset()
		zw.rle.Init(zw.newBuffer())
	}
	if len(zw.pending) == 0 || (len(zw.pending) < zw.conc && !force) {
		return nil
	}
	return zw.encodePending()
}

// encodePending encodes all queued blocks and writes them to the stream.
func (zw *Writer) encodePending() (err error) {
	defer errors.Recover(&err)

	if !zw.wrHdr {
		writeStreamHeader(&zw.wr, zw.level)
		zw.wrHdr = true
	}
	for len(zw.encs) < len(zw.pending) {
		zw.encs = append(zw.encs, new(blockEncoder))
	}

	if len(zw.pending) == 1 {
		blk := zw.pending[0]
		bi := zw.encs[0].Encode(&zw.wr, blk.rle, blk.crc)
		zw.logBlock(zw.blkIdx, blk.size, bi)
	} else {
		frames := make([]Frame, len(zw.pending))
		infos := make([]blockInfo, len(zw.pending))
		var g errgroup.Group
		for i := range zw.pending {
			i, blk := i, zw.pending[i]
			g.Go(func() (err error) {
				frames[i], infos[i], err = encodeFrame(zw.encs[i], blk.rle, blk.crc, blk.size)
				if err != nil {
					return &BlockError{Index: zw.blkIdx + i, Err: err}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var br prefix.Reader
		for i, f := range frames {
			br.Init(bytes.NewReader(f.Data), true)
			copyBits(&zw.wr, &br, f.NumBits)
			zw.logBlock(zw.blkIdx+i, f.RawSize, infos[i])
		}
	}

	for _, blk := range zw.pending {
		zw.endCRC = streamCRC(zw.endCRC, blk.crc)
		zw.free = append(zw.free, blk.rle[:cap(blk.rle)])
	}
	zw.blkIdx += len(zw.pending)
	zw.pending = zw.pending[:0]

	zw.OutputOffset, err = zw.wr.Flush()
	return err
}

func (zw *Writer) logBlock(idx int, rawSize int64, bi blockInfo) {
	zw.log.V(1).Info("block encoded", append([]interface{}{"index", idx, "rawSize", rawSize}, bi.keysAndValues()...)...)
}

func (zw *Writer) Close() error {
	if errors.IsClosed(zw.err) {
		return nil
	}
	if zw.err != nil {
		return zw.err
	}

	if zw.err = zw.flushBlock(true); zw.err != nil {
		return zw.err
	}
	if zw.err = zw.writeFooter(); zw.err != nil {
		return zw.err
	}
	zw.err = errClosed
	return nil
}

func (zw *Writer) writeFooter() (err error) {
	defer errors.Recover(&err)

	if !zw.wrHdr {
		writeStreamHeader(&zw.wr, zw.level)
		zw.wrHdr = true
	}
	writeStreamFooter(&zw.wr, zw.endCRC)
	zw.OutputOffset, err = zw.wr.Flush()
	zw.log.V(1).Info("stream encoded", "blocks", zw.blkIdx, "crc", zw.endCRC)
	return err
}
