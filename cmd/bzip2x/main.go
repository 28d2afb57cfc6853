// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command bzip2x compresses and decompresses bzip2 files, encoding and
// decoding blocks in parallel.
//
// Example usage:
//	$ bzip2x compress -l 9 -j 4 twain.txt
//	$ bzip2x -v decompress -o twain.out twain.txt.bz2
//	$ bzip2x test twain.txt.bz2
//	$ bzip2x list twain.txt.bz2
//	$ bzip2x bench --formats bz2,xz --tests ratio --sizes 1e5
//
// Defaults for the level, concurrency, and verbosity are read from the
// BZIP2X_LEVEL, BZIP2X_CONCURRENCY, and BZIP2X_VERBOSITY environment variables.
package main

import (
	"log"
	"os"
)

func main() {
	env, err := loadEnv()
	if err != nil {
		log.Fatalf("fatal error: %v", err)
	}
	if err := newApp(env).Run(os.Args); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}
