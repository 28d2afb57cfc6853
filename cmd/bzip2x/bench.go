// Copyright 2026, The Blocksort Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/blocksort/compress/internal/tool/bench"
)

var listSep = regexp.MustCompile("[,:]")

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return listSep.Split(s, -1)
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Compare this bzip2 against other codecs on synthetic inputs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "formats", Usage: "formats to benchmark (bz2, fl, zst, xz)"},
			&cli.StringFlag{Name: "tests", Usage: "tests to run (encRate, decRate, ratio)"},
			&cli.StringFlag{Name: "codecs", Usage: "codecs to benchmark (bs, std, kp, uz)"},
			&cli.StringFlag{Name: "files", Usage: "synthetic inputs to benchmark"},
			&cli.StringFlag{Name: "levels", Value: "1,6,9", Usage: "compression levels to benchmark"},
			&cli.StringFlag{Name: "sizes", Value: "1e4,1e5,1e6", Usage: "input sizes to benchmark"},
			&cli.BoolFlag{Name: "csv", Usage: "print the results as CSV"},
		},
		Action: runBench,
	}
}

func parseBenchOptions(c *cli.Context) (opts bench.Options, err error) {
	for _, s := range splitList(c.String("formats")) {
		f, err := bench.ParseFormat(s)
		if err != nil {
			return opts, err
		}
		opts.Formats = append(opts.Formats, f)
	}
	for _, s := range splitList(c.String("tests")) {
		t, err := bench.ParseTest(s)
		if err != nil {
			return opts, err
		}
		opts.Tests = append(opts.Tests, t)
	}
	opts.Codecs = splitList(c.String("codecs"))
	opts.Files = splitList(c.String("files"))
	for _, s := range splitList(c.String("levels")) {
		lvl, err := unitconv.ParsePrefix(s, unitconv.AutoParse)
		if err != nil {
			return opts, errors.Wrapf(err, "invalid level %q", s)
		}
		opts.Levels = append(opts.Levels, int(lvl))
	}
	for _, s := range splitList(c.String("sizes")) {
		n, err := unitconv.ParsePrefix(s, unitconv.AutoParse)
		if err != nil || n < 0 {
			return opts, errors.Errorf("invalid size %q", s)
		}
		opts.Sizes = append(opts.Sizes, int(n))
	}
	return opts, nil
}

func runBench(c *cli.Context) error {
	opts, err := parseBenchOptions(c)
	if err != nil {
		return errors.Wrap(err, "bench")
	}
	if !c.Bool("csv") {
		opts.Progress = c.App.ErrWriter
	}

	ts := time.Now()
	reports, err := bench.Run(opts)
	if err != nil {
		return errors.Wrap(err, "bench")
	}
	if c.Bool("csv") {
		return errors.Wrap(bench.WriteCSV(c.App.Writer, reports), "bench")
	}
	for _, r := range reports {
		bench.PrintReport(c.App.Writer, r)
	}
	fmt.Fprintf(c.App.Writer, "RUNTIME: %v\n", time.Since(ts))
	return nil
}
