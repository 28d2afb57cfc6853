// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

func concurrency(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

var (
	encoderPool = sync.Pool{New: func() interface{} { return new(blockEncoder) }}
	decoderPool = sync.Pool{New: func() interface{} { return new(blockDecoder) }}
)

// splitBlocks applies RLE1 to data, cutting it into blocks whose RLE1
// output fits within the block size of level.
func splitBlocks(data []byte, level int) []rawBlock {
	var blks []rawBlock
	var rle runLengthEncoding
	for len(data) > 0 {
		rle.Init(make([]byte, maxRLESize(level)))
		cnt, _ := rle.Write(data)
		blks = append(blks, rawBlock{rle.Bytes(), updateCRC(0, data[:cnt]), int64(cnt)})
		data = data[cnt:]
	}
	return blks
}

// Compress compresses data into independent Frames, encoding up to
// conf.Concurrency blocks in parallel. The frames are ordered as the blocks
// in data and can be joined into a stream with WriteStream using the same
// level. Empty input produces no frames.
//
// A block holds at most 100000*level-19 bytes of RLE1 output, not the
// nominal block size of the level. Thus, 900000 bytes of incompressible data
// at level 9 produce two frames.
func Compress(data []byte, conf *WriterConfig) ([]Frame, error) {
	var lvl, conc int
	var log logr.Logger
	if conf != nil {
		lvl, conc, log = conf.Level, conf.Concurrency, conf.Logger
	}
	lvl, err := checkLevel(lvl)
	if err != nil {
		return nil, err
	}
	log = loggerOrDiscard(log)

	blks := splitBlocks(data, lvl)
	frames := make([]Frame, len(blks))
	var g errgroup.Group
	g.SetLimit(concurrency(conc))
	for i, blk := range blks {
		i, blk := i, blk
		g.Go(func() error {
			e := encoderPool.Get().(*blockEncoder)
			defer encoderPool.Put(e)

			f, bi, err := encodeFrame(e, blk.rle, blk.crc, blk.size)
			if err != nil {
				return &BlockError{Index: i, Err: err}
			}
			frames[i] = f
			log.V(1).Info("block encoded", append([]interface{}{"index", i, "rawSize", blk.size}, bi.keysAndValues()...)...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// Decompress decodes the frames, up to conf.Concurrency of them in parallel,
// and returns their concatenated content.
//
// By default, decoding stops at the first failed frame: the content of all
// preceding frames is returned along with a *BlockError for the failure.
// With conf.ContinueOnError, every frame is decoded, the content of the
// failed frames is omitted, and the returned error is a *multierror.Error
// holding one *BlockError per failed frame in order.
func Decompress(frames []Frame, conf *ReaderConfig) ([]byte, error) {
	var c ReaderConfig
	if conf != nil {
		c = *conf
	}
	log := loggerOrDiscard(c.Logger)

	outs := make([][]byte, len(frames))
	errs := make([]error, len(frames))
	var firstErr atomic.Int64
	firstErr.Store(int64(len(frames)))

	var g errgroup.Group
	g.SetLimit(concurrency(c.Concurrency))
	for i := range frames {
		i := i
		g.Go(func() error {
			if !c.ContinueOnError && int64(i) > firstErr.Load() {
				return nil // A preceding frame already failed
			}
			d := decoderPool.Get().(*blockDecoder)
			defer decoderPool.Put(d)

			out, bi, err := decodeFrame(d, nil, frames[i])
			if err != nil {
				errs[i] = &BlockError{Index: i, Err: err}
				log.Error(err, "block failed", "index", i)
				for {
					cur := firstErr.Load()
					if int64(i) >= cur || firstErr.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
				return nil
			}
			outs[i] = out
			log.V(1).Info("block decoded", append([]interface{}{"index", i}, bi.keysAndValues()...)...)
			return nil
		})
	}
	g.Wait()

	var out []byte
	var merr *multierror.Error
	for i := range frames {
		if errs[i] != nil {
			if !c.ContinueOnError {
				return out, errs[i]
			}
			merr = multierror.Append(merr, errs[i])
			continue
		}
		out = append(out, outs[i]...)
	}
	return out, merr.ErrorOrNil()
}
