// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dsnet/golib/unitconv"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/blocksort/compress/bzip2"
)

type tool struct {
	env     envConfig
	verbose int
	log     logr.Logger
}

func newApp(env envConfig) *cli.App {
	t := &tool{env: env, log: logr.Discard()}
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write the result to `PATH`",
	}
	return &cli.App{
		Name:                   "bzip2x",
		Usage:                  "Compress and decompress bzip2 files in parallel",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log progress to stderr; repeat for per-block detail",
				Count:   &t.verbose,
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"j"},
				Value:   env.Concurrency,
				Usage:   "number of blocks processed in parallel; 0 uses every CPU",
			},
		},
		Before: t.setup,
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "Compress FILE into FILE.bz2",
				ArgsUsage: "FILE",
				Action:    t.compress,
				Flags: []cli.Flag{
					outputFlag,
					&cli.IntFlag{
						Name:    "level",
						Aliases: []string{"l"},
						Value:   env.Level,
						Usage:   "block size in units of 100k, from 1 to 9",
					},
				},
			},
			{
				Name:      "decompress",
				Usage:     "Decompress FILE.bz2 into FILE",
				ArgsUsage: "FILE",
				Action:    t.decompress,
				Flags:     []cli.Flag{outputFlag},
			},
			{
				Name:      "test",
				Usage:     "Check the integrity of every block of each FILE",
				ArgsUsage: "FILE...",
				Action:    t.test,
			},
			{
				Name:      "list",
				Usage:     "Print the blocks of FILE",
				ArgsUsage: "FILE",
				Action:    t.list,
			},
			benchCommand(),
		},
	}
}

func (t *tool) setup(c *cli.Context) error {
	v := t.env.Verbosity + t.verbose
	if v > 0 {
		stdr.SetVerbosity(v - 1)
		t.log = stdr.New(log.New(c.App.ErrWriter, "bzip2x: ", 0))
	}
	return nil
}

func argFile(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Errorf("%s: expected exactly one FILE argument", c.Command.Name)
	}
	return c.Args().First(), nil
}

func decompressedName(name string) string {
	if strings.HasSuffix(name, ".bz2") {
		return strings.TrimSuffix(name, ".bz2")
	}
	return name + ".out"
}

func (t *tool) compress(c *cli.Context) error {
	in, err := argFile(c)
	if err != nil {
		return err
	}
	out := c.String("output")
	if out == "" {
		out = in + ".bz2"
	}

	rf, err := os.Open(in)
	if err != nil {
		return errors.Wrapf(err, "open %s", in)
	}
	defer rf.Close()
	wf, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s", out)
	}
	defer wf.Close()

	zw, err := bzip2.NewWriter(wf, &bzip2.WriterConfig{
		Level:       c.Int("level"),
		Concurrency: c.Int("concurrency"),
		Logger:      t.log,
	})
	if err != nil {
		return errors.Wrap(err, "compress")
	}
	if _, err := io.Copy(zw, bufio.NewReader(rf)); err != nil {
		return errors.Wrapf(err, "compress %s", in)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "compress %s", in)
	}
	if err := wf.Close(); err != nil {
		return errors.Wrapf(err, "close %s", out)
	}
	t.log.Info("compressed", "input", in, "output", out, "rawBytes", zw.InputOffset, "compressedBytes", zw.OutputOffset)
	return nil
}

func (t *tool) decompress(c *cli.Context) error {
	in, err := argFile(c)
	if err != nil {
		return err
	}
	out := c.String("output")
	if out == "" {
		out = decompressedName(in)
	}

	var data []byte
	if conc := c.Int("concurrency"); conc == 1 {
		data, err = t.decodeStream(in)
	} else {
		data, err = t.decodeFrames(in, &bzip2.ReaderConfig{Concurrency: conc, Logger: t.log})
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}
	t.log.Info("decompressed", "input", in, "output", out, "rawBytes", len(data))
	return nil
}

// decodeStream decodes the file one block at a time with the streaming Reader.
func (t *tool) decodeStream(name string) ([]byte, error) {
	rf, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	defer rf.Close()
	zr, err := bzip2.NewReader(bufio.NewReader(rf), &bzip2.ReaderConfig{Logger: t.log})
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, errors.Wrapf(err, "decompress %s", name)
	}
	return buf.Bytes(), zr.Close()
}

// decodeFrames splits the file into frames and decodes them in parallel.
func (t *tool) decodeFrames(name string, conf *bzip2.ReaderConfig) ([]byte, error) {
	stream, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	_, frames, err := bzip2.SplitFrames(stream)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %s", name)
	}
	data, err := bzip2.Decompress(frames, conf)
	if err != nil {
		return data, errors.Wrapf(err, "decompress %s", name)
	}
	return data, nil
}

func (t *tool) test(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("test: expected at least one FILE argument")
	}
	w := c.App.Writer
	var failed int
	for _, name := range c.Args().Slice() {
		data, err := t.decodeFrames(name, &bzip2.ReaderConfig{
			Concurrency:     c.Int("concurrency"),
			ContinueOnError: true,
			Logger:          t.log,
		})
		if err == nil {
			fmt.Fprintf(w, "%s: ok (%s)\n", name, formatSize(int64(len(data))))
			continue
		}
		failed++
		fmt.Fprintf(w, "%s: FAILED\n", name)
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				fmt.Fprintf(w, "\t%v\n", e)
			}
		} else {
			fmt.Fprintf(w, "\t%v\n", err)
		}
	}
	if failed > 0 {
		return errors.Errorf("test: %d of %d files failed", failed, c.NArg())
	}
	return nil
}

func (t *tool) list(c *cli.Context) error {
	name, err := argFile(c)
	if err != nil {
		return err
	}
	stream, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	level, frames, err := bzip2.SplitFrames(stream)
	if err != nil {
		return errors.Wrapf(err, "list %s", name)
	}

	// The streaming Reader records where each block starts.
	zr, err := bzip2.NewReader(bytes.NewReader(stream), nil)
	if err != nil {
		return errors.Wrap(err, "list")
	}
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return errors.Wrapf(err, "list %s", name)
	}
	stats := zr.Stats()

	tw := tabwriter.NewWriter(c.App.Writer, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "block\tbit offset\tcompressed\traw\tcrc\t\n")
	var total int64
	for i := range frames {
		out, err := bzip2.DecodeFrame(frames[i])
		if err != nil {
			return errors.Wrapf(&bzip2.BlockError{Index: i, Err: err}, "list %s", name)
		}
		frames[i].RawSize = int64(len(out))
		total += frames[i].RawSize
		var off int64
		if i < len(stats.BlockOffsets) {
			off = stats.BlockOffsets[i]
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%08x\t\n", i, off,
			formatSize((frames[i].NumBits+7)/8), formatSize(frames[i].RawSize), frames[i].CRC)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "streams: %d, level: %d, blocks: %d, compressed: %s, raw: %s, crc: %08x\n",
		stats.Streams, level, len(frames), formatSize(int64(len(stream))), formatSize(total), bzip2.ContentCRC(frames))
	return nil
}

func formatSize(n int64) string {
	s := unitconv.FormatPrefix(float64(n), unitconv.Base1024, 2)
	return strings.Replace(s, ".00", "", -1) + "B"
}
