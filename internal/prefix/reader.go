// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/blocksort/compress"
	"github.com/blocksort/compress/internal"
	"github.com/blocksort/compress/internal/errors"
)

// Reader implements a prefix decoder. If the input io.Reader satisfies the
// compress.ByteReader or compress.BufferedReader interface, then it also
// guarantees that it will never read more bytes than is necessary.
//
// For high performance, provide an io.Reader that satisfies the
// compress.BufferedReader interface. If the input does not satisfy either
// compress.ByteReader or compress.BufferedReader, then it will be internally
// wrapped with a bufio.Reader.
type Reader struct {
	rd        io.Reader
	byteRd    compress.ByteReader     // Set if rd is a ByteReader
	bufRd     compress.BufferedReader // Set if rd is a BufferedReader
	bufBits   uint64                  // Buffer to hold some bits
	numBits   uint                    // Number of valid bits in bufBits
	bigEndian bool                    // Do we treat input bytes as big endian?
	offset    int64                   // Number of bytes read from the underlying io.Reader

	// These fields are only used if rd is a compress.BufferedReader.
	bufPeek     []byte // Buffer for the Peek data
	discardBits int    // Number of bits to discard from reader
	fedBits     uint   // Number of bits fed in last call to PullBits

	// These fields are used to reduce allocations.
	bb *bufferReader
	pk *peekReader
	bu *bufio.Reader
}

// Init initializes the bit Reader to read from r. If bigEndian is true, then
// bits will be read starting from the most-significant bits of a byte
// (as done in bzip2), otherwise it will read starting from the
// least-significant bits of a byte (such as for deflate and brotli).
func (pr *Reader) Init(r io.Reader, bigEndian bool) {
	*pr = Reader{
		rd:        r,
		bigEndian: bigEndian,

		bb: pr.bb,
		pk: pr.pk,
		bu: pr.bu,
	}
	switch rr := r.(type) {
	case *bytes.Buffer:
		if pr.bb == nil {
			pr.bb = new(bufferReader)
		}
		*pr.bb = bufferReader{Buffer: rr}
		pr.bufRd = pr.bb
	case *bytes.Reader, *strings.Reader:
		if pr.pk == nil {
			pr.pk = new(peekReader)
		}
		*pr.pk = peekReader{seekReaderAt: rr.(seekReaderAt)}
		pr.bufRd = pr.pk
	case compress.BufferedReader:
		pr.bufRd = rr
	case compress.ByteReader:
		pr.byteRd = rr
	default:
		if pr.bu == nil {
			pr.bu = bufio.NewReader(nil)
		}
		pr.bu.Reset(r)
		pr.rd, pr.bufRd = pr.bu, pr.bu
	}
}

// BitsRead reports the total number of bits consumed by the Reader, that is,
// the bits read from the underlying io.Reader minus the bits still buffered.
func (pr *Reader) BitsRead() int64 {
	if pr.bufRd != nil {
		discardBits := pr.discardBits + int(pr.fedBits-pr.numBits)
		return 8*pr.offset + int64(discardBits)
	}
	return 8*pr.offset - int64(pr.numBits)
}

// ReadPads reads 0-7 bits from the bit buffer to achieve byte-alignment.
func (pr *Reader) ReadPads() uint {
	nb := pr.numBits % 8
	val := uint(pr.bufBits & uint64(1<<nb-1))
	pr.bufBits >>= nb
	pr.numBits -= nb
	return val
}

// Read reads bytes into buf.
// The bit-ordering mode does not affect this method.
func (pr *Reader) Read(buf []byte) (cnt int, err error) {
	if pr.numBits > 0 {
		if pr.numBits%8 != 0 {
			return 0, errorf(errors.Invalid, "non-aligned bit buffer")
		}
		for cnt = 0; len(buf) > cnt && pr.numBits > 0; cnt++ {
			if pr.bigEndian {
				buf[cnt] = internal.ReverseLUT[byte(pr.bufBits)]
			} else {
				buf[cnt] = byte(pr.bufBits)
			}
			pr.bufBits >>= 8
			pr.numBits -= 8
		}
		return cnt, nil
	}
	if _, err := pr.Flush(); err != nil {
		return 0, err
	}
	cnt, err = pr.rd.Read(buf)
	pr.offset += int64(cnt)
	return cnt, err
}

// TryReadBits attempts to read nb bits using the contents of the bit buffer
// alone. It returns the value and whether it succeeded.
//
// This method is designed to be inlined for performance reasons.
func (pr *Reader) TryReadBits(nb uint) (uint, bool) {
	if pr.numBits < nb {
		return 0, false
	}
	val := uint(pr.bufBits & uint64(1<<nb-1))
	pr.bufBits >>= nb
	pr.numBits -= nb
	if pr.bigEndian {
		val = uint(internal.ReverseUint32N(uint32(val), nb))
	}
	return val, true
}

// ReadBits reads nb bits in from the underlying reader.
func (pr *Reader) ReadBits(nb uint) uint {
	if err := pr.PullBits(nb); err != nil {
		errors.Panic(err)
	}
	val := uint(pr.bufBits & uint64(1<<nb-1))
	pr.bufBits >>= nb
	pr.numBits -= nb
	if pr.bigEndian {
		val = uint(internal.ReverseUint32N(uint32(val), nb))
	}
	return val
}

// TryReadSymbol attempts to decode the next symbol using the contents of the
// bit buffer alone. It returns the decoded symbol and whether it succeeded.
//
// This method is designed to be inlined for performance reasons.
func (pr *Reader) TryReadSymbol(pd *Decoder) (uint, bool) {
	if pr.numBits < uint(pd.minBits) || len(pd.chunks) == 0 {
		return 0, false
	}
	chunk := pd.chunks[uint32(pr.bufBits)&pd.chunkMask]
	nb := uint(chunk & countMask)
	if nb > pr.numBits || nb > uint(pd.chunkBits) {
		return 0, false
	}
	pr.bufBits >>= nb
	pr.numBits -= nb
	return uint(chunk >> countBits), true
}

// ReadSymbol reads the next symbol using the provided prefix Decoder.
func (pr *Reader) ReadSymbol(pd *Decoder) uint {
	if len(pd.chunks) == 0 {
		panicf(errors.Invalid, "decode with empty prefix tree")
	}

	nb := uint(pd.minBits)
	for {
		if err := pr.PullBits(nb); err != nil {
			errors.Panic(err)
		}
		chunk := pd.chunks[uint32(pr.bufBits)&pd.chunkMask]
		nb = uint(chunk & countMask)
		if nb > uint(pd.chunkBits) {
			linkIdx := chunk >> countBits
			chunk = pd.links[linkIdx][uint32(pr.bufBits>>uint(pd.chunkBits))&pd.linkMask]
			nb = uint(chunk & countMask)
		}
		if nb <= pr.numBits {
			pr.bufBits >>= nb
			pr.numBits -= nb
			return uint(chunk >> countBits)
		}
	}
}

// Flush updates the read offset of the underlying ByteReader.
// If reader is a compress.BufferedReader, then this calls Discard to update
// the read offset.
func (pr *Reader) Flush() (int64, error) {
	if pr.bufRd == nil {
		return pr.offset, nil
	}

	// Update the number of total bits to discard.
	pr.discardBits += int(pr.fedBits - pr.numBits)
	pr.fedBits = pr.numBits

	// Discard some bytes to update read offset.
	var err error
	nd := (pr.discardBits + 7) / 8 // Round up to nearest byte
	nd, err = pr.bufRd.Discard(nd)
	pr.discardBits -= nd * 8 // -7..0
	pr.offset += int64(nd)

	// These are invalid after Discard.
	pr.bufPeek = nil
	return pr.offset, err
}

// PullBits ensures that at least nb bits exist in the bit buffer.
// If the underlying reader is a compress.BufferedReader, then this will fill
// the bit buffer with as many bits as possible, relying on Peek and Discard to
// properly advance the read offset. Otherwise, it will use ReadByte to fill the
// buffer with just the right number of bits.
func (pr *Reader) PullBits(nb uint) error {
	if pr.bufRd != nil {
		pr.discardBits += int(pr.fedBits - pr.numBits)
		for {
			if len(pr.bufPeek) == 0 {
				pr.fedBits = pr.numBits // Don't discard bits just added
				if _, err := pr.Flush(); err != nil {
					return err
				}

				var err error
				cntPeek := 8 // Minimum Peek amount to make progress
				if pr.bufRd.Buffered() > cntPeek {
					cntPeek = pr.bufRd.Buffered()
				}
				pr.bufPeek, err = pr.bufRd.Peek(cntPeek)
				pr.bufPeek = pr.bufPeek[int(pr.numBits/8):] // Skip buffered bits
				if len(pr.bufPeek) == 0 {
					if pr.numBits >= nb {
						break
					}
					if err == io.EOF {
						err = errUnexpectedEOF
					}
					return err
				}
			}
			n := int(64-pr.numBits) / 8 // Number of bytes to copy to bit buffer
			if len(pr.bufPeek) >= 8 {
				// Starting with Go 1.7, the compiler should use a wide integer
				// load here if the architecture supports it.
				u := uint64(pr.bufPeek[0]) | uint64(pr.bufPeek[1])<<8 | uint64(pr.bufPeek[2])<<16 | uint64(pr.bufPeek[3])<<24 |
					uint64(pr.bufPeek[4])<<32 | uint64(pr.bufPeek[5])<<40 | uint64(pr.bufPeek[6])<<48 | uint64(pr.bufPeek[7])<<56
				if n < 8 {
					u &= 1<<(8*uint(n)) - 1 // Keep bits above numBits zeroed
				}
				if pr.bigEndian {
					u = reverseBytes64(u)
				}
				pr.bufBits |= u << pr.numBits
				pr.numBits += uint(n * 8)
				pr.bufPeek = pr.bufPeek[n:]
				break
			} else {
				if n > len(pr.bufPeek) {
					n = len(pr.bufPeek)
				}
				for _, c := range pr.bufPeek[:n] {
					if pr.bigEndian {
						c = internal.ReverseLUT[c]
					}
					pr.bufBits |= uint64(c) << pr.numBits
					pr.numBits += 8
				}
				pr.bufPeek = pr.bufPeek[n:]
				if pr.numBits > 56 {
					break
				}
			}
		}
		pr.fedBits = pr.numBits
	} else {
		for pr.numBits < nb {
			c, err := pr.byteRd.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = errUnexpectedEOF
				}
				return err
			}
			if pr.bigEndian {
				c = internal.ReverseLUT[c]
			}
			pr.bufBits |= uint64(c) << pr.numBits
			pr.numBits += 8
			pr.offset++
		}
	}
	return nil
}

var errUnexpectedEOF = errors.Error{Code: errors.Truncated, Pkg: "prefix", Msg: "unexpected end of stream"}

// reverseBytes64 reverses the bits within each of the eight bytes of u.
func reverseBytes64(u uint64) uint64 {
	var x uint64
	for i := uint(0); i < 64; i += 8 {
		x |= uint64(internal.ReverseLUT[byte(u>>i)]) << i
	}
	return x
}
