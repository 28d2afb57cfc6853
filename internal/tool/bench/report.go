// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bench

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/blocksort/compress/internal/testutil"
)

// The decompression speed benchmark works by decompressing some pre-compressed
// data. In order for the benchmarks to be consistent, the same encoder should
// be used to generate the pre-compressed data for all the trials.
//
// encRefs defines the priority order for which encoders to choose first as the
// reference compressor. If no compressor is found for any of the listed codecs,
// then a random encoder will be chosen.
var encRefs = []string{CodecStd, CodecKP, CodecUZ, CodecBS}

// Options selects what Run benchmarks. Empty lists select everything
// registered, all corpus files, levels 1, 6, and 9, and sizes 1e4 to 1e6.
type Options struct {
	Formats []Format
	Tests   []Test
	Codecs  []string
	Files   []string
	Levels  []int
	Sizes   []int

	// Progress, if non-nil, receives a progress line per benchmark.
	Progress io.Writer
}

// Report is the outcome of a single test on a single format.
type Report struct {
	Format  Format
	Test    Test
	Skipped string // Reason the test did not run, if any

	Codecs  []string
	Names   []string
	Results [][]Result // [len(Names)][len(Codecs)]Result
}

// DefaultFormats returns every format with a registered codec.
func DefaultFormats() []Format {
	m := make(map[Format]bool)
	for k := range Encoders {
		m[k] = true
	}
	for k := range Decoders {
		m[k] = true
	}
	var fs []Format
	for k := range m {
		fs = append(fs, k)
	}
	sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
	return fs
}

// DefaultCodecs returns the names of all registered codecs with "bs" first.
func DefaultCodecs() []string {
	m := make(map[string]bool)
	for _, v := range Encoders {
		for k := range v {
			m[k] = true
		}
	}
	for _, v := range Decoders {
		for k := range v {
			m[k] = true
		}
	}
	hasBS := m[CodecBS]
	delete(m, CodecBS)
	var s []string
	for k := range m {
		s = append(s, k)
	}
	sort.Strings(s)
	if hasBS {
		s = append([]string{CodecBS}, s...)
	}
	return s
}

func (o *Options) setDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = DefaultFormats()
	}
	if len(o.Tests) == 0 {
		o.Tests = []Test{TestEncodeRate, TestDecodeRate, TestCompressRatio}
	}
	if len(o.Codecs) == 0 {
		o.Codecs = DefaultCodecs()
	}
	if len(o.Files) == 0 {
		o.Files = testutil.CorpusNames()
	}
	if len(o.Levels) == 0 {
		o.Levels = []int{1, 6, 9}
	}
	if len(o.Sizes) == 0 {
		o.Sizes = []int{1e4, 1e5, 1e6}
	}
}

// Run performs every requested benchmark. This may take some time.
func Run(opts Options) ([]Report, error) {
	opts.setDefaults()
	for _, f := range opts.Files {
		if testutil.Corpus[f] == nil {
			return nil, fmt.Errorf("bench: unknown file %q", f)
		}
	}

	var reports []Report
	for _, f := range opts.Formats {
		// Get lists of encoders and decoders that exist.
		var encs, decs []string
		for _, c := range opts.Codecs {
			if _, ok := Encoders[f][c]; ok {
				encs = append(encs, c)
			}
		}
		for _, c := range opts.Codecs {
			if _, ok := Decoders[f][c]; ok {
				decs = append(decs, c)
			}
		}

		for _, t := range opts.Tests {
			r := Report{Format: f, Test: t}

			// Check that we can actually do this bench.
			if len(encs) == 0 {
				r.Skipped = "There are no encoders available."
				reports = append(reports, r)
				continue
			}
			if len(decs) == 0 && t == TestDecodeRate {
				r.Skipped = "There are no decoders available."
				reports = append(reports, r)
				continue
			}

			var cnt int
			tick := func() {
				if opts.Progress == nil {
					return
				}
				total := len(r.Codecs) * len(opts.Files) * len(opts.Levels) * len(opts.Sizes)
				pct := 100.0 * float64(cnt) / float64(total)
				fmt.Fprintf(opts.Progress, "\t[%6.2f%%] %d of %d\r", pct, cnt, total)
				cnt++
			}

			switch t {
			case TestEncodeRate:
				r.Codecs = encs
				r.Results, r.Names = BenchmarkEncoderSuite(f, encs, opts.Files, opts.Levels, opts.Sizes, tick)
			case TestDecodeRate:
				r.Codecs = decs
				r.Results, r.Names = BenchmarkDecoderSuite(f, decs, opts.Files, opts.Levels, opts.Sizes, getReferenceEncoder(f), tick)
			case TestCompressRatio:
				r.Codecs = encs
				r.Results, r.Names = BenchmarkRatioSuite(f, encs, opts.Files, opts.Levels, opts.Sizes, tick)
			default:
				return reports, fmt.Errorf("bench: unknown test %v", t)
			}
			reports = append(reports, r)
		}
	}
	return reports, nil
}

func getReferenceEncoder(f Format) Encoder {
	for _, c := range encRefs {
		if enc, ok := Encoders[f][c]; ok {
			return enc // Choose by priority
		}
	}
	for _, enc := range Encoders[f] {
		return enc // Choose any random encoder
	}
	return nil // There are no encoders
}

func validFloat(f float64) bool {
	return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PrintReport writes r as an aligned text table.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "BENCHMARK: %v:%v\n", r.Format, r.Test)
	if r.Skipped != "" {
		fmt.Fprintf(w, "\tSKIP: %s\n\n", r.Skipped)
		return
	}
	title, suffix := "MB/s", ""
	if r.Test == TestCompressRatio {
		title, suffix = "ratio", "x"
	}

	// Allocate result table.
	cells := make([][]string, 1+len(r.Names))
	for i := range cells {
		cells[i] = make([]string, 1+2*len(r.Codecs))
	}

	// Label the first row.
	cells[0][0] = "benchmark"
	for i, c := range r.Codecs {
		cells[0][1+2*i] = c + " " + title
		cells[0][2+2*i] = "delta"
	}

	// Insert all rows.
	for j, row := range r.Results {
		cells[1+j][0] = r.Names[j]
		for i, res := range row {
			if validFloat(res.R) {
				cells[1+j][1+2*i] = fmt.Sprintf("%.2f", res.R) + suffix
			}
			if validFloat(res.D) {
				cells[1+j][2+2*i] = fmt.Sprintf("%.2f", res.D) + "x"
			}
		}
	}

	// Compute the maximum lengths.
	maxLens := make([]int, 1+2*len(r.Codecs))
	for _, row := range cells {
		for i, s := range row {
			if maxLens[i] < len(s) {
				maxLens[i] = len(s)
			}
		}
	}

	// Print padded versions of all cells.
	for _, row := range cells {
		fmt.Fprint(w, "\t")
		for i, s := range row {
			switch {
			case i == 0: // Column 0
				row[i] = s + strings.Repeat(" ", maxLens[i]-len(s))
			case i%2 == 1: // Column 1, 3, 5, 7, ...
				row[i] = strings.Repeat(" ", 6+maxLens[i]-len(s)) + s
			case i%2 == 0: // Column 2, 4, 6, 8, ...
				row[i] = strings.Repeat(" ", 2+maxLens[i]-len(s)) + s
			}
			fmt.Fprint(w, row[i])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// Record is a single benchmark measurement in CSV form.
type Record struct {
	Format    string  `csv:"format"`
	Test      string  `csv:"test"`
	Benchmark string  `csv:"benchmark"`
	Codec     string  `csv:"codec"`
	Value     float64 `csv:"value"`
	Delta     float64 `csv:"delta"`
}

// Records flattens the reports into one record per measurement.
// Skipped reports and failed measurements produce no records.
func Records(reports []Report) []*Record {
	var recs []*Record
	for _, r := range reports {
		for j, row := range r.Results {
			for i, res := range row {
				if !validFloat(res.R) {
					continue
				}
				rec := &Record{
					Format:    r.Format.String(),
					Test:      r.Test.String(),
					Benchmark: r.Names[j],
					Codec:     r.Codecs[i],
					Value:     res.R,
				}
				if validFloat(res.D) {
					rec.Delta = res.D
				}
				recs = append(recs, rec)
			}
		}
	}
	return recs
}

// WriteCSV writes the reports as CSV with a header row.
func WriteCSV(w io.Writer, reports []Report) error {
	recs := Records(reports)
	return gocsv.Marshal(&recs, w)
}
