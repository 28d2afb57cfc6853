// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"hash/crc32"

	"github.com/dsnet/golib/hashmerge"

	"github.com/blocksort/compress/internal"
)

// updateCRC returns the result of adding the bytes in buf to the crc.
// The crc of the empty string is zero.
func updateCRC(crc uint32, buf []byte) uint32 {
	// The CRC-32 computation in bzip2 treats bytes as having bits in big-endian
	// order. That is, the MSB is read before the LSB. Thus, we can use the
	// standard library version of CRC-32 IEEE with some minor adjustments.
	crc = internal.ReverseUint32(crc)
	var arr [4096]byte
	for len(buf) > 0 {
		cnt := copy(arr[:], buf)
		buf = buf[cnt:]
		internal.ReverseBytes(arr[:cnt])
		crc = crc32.Update(crc, crc32.IEEETable, arr[:cnt])
	}
	return internal.ReverseUint32(crc)
}

// combineCRC combines two CRC-32 checksums together, such that the result
// is the crc of the concatenation of the inputs, len2 being the length of
// the second input.
func combineCRC(crc1, crc2 uint32, len2 int64) uint32 {
	crc1 = internal.ReverseUint32(crc1)
	crc2 = internal.ReverseUint32(crc2)
	crc := hashmerge.CombineCRC32(crc32.IEEE, crc1, crc2, len2)
	return internal.ReverseUint32(crc)
}

// streamCRC folds the crc of the next block into the crc of the stream.
func streamCRC(crc, blkCRC uint32) uint32 {
	return (crc<<1 | crc>>31) ^ blkCRC
}

// crcEngine is a running block checksum.
// The zero value is ready for use and holds the crc of no bytes.
type crcEngine struct {
	val uint32
	n   int64 // Number of bytes added
}

func (c *crcEngine) update(buf []byte) {
	c.val = updateCRC(c.val, buf)
	c.n += int64(len(buf))
}

func (c *crcEngine) finalize() uint32 { return c.val }

func (c *crcEngine) reset() { *c = crcEngine{} }
