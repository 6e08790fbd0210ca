// Command pqdump prints the columns and the decoded rows of a parquet file.
//
//	pqdump [-mmap] [-rows N] [-group G] [-stats] [-v] file.parquet
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"

	"github.com/segmentio/pqdecode"
	"github.com/segmentio/pqdecode/internal/mmap"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "pqdump: %s\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	mmap    bool
	rows    int
	group   int
	stats   bool
	verbose bool
	path    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := new(options)
	fs := flag.NewFlagSet("pqdump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.mmap, "mmap", false, "Memory map the file instead of reading it with pread")
	fs.IntVar(&opts.rows, "rows", 20, "Maximum number of rows printed per row group, all rows when negative")
	fs.IntVar(&opts.group, "group", -1, "Row group to print, all row groups when negative")
	fs.BoolVar(&opts.stats, "stats", false, "Print the min value statistics of each column chunk")
	fs.BoolVar(&opts.verbose, "v", false, "Log debug events of the decoder")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one parquet file, got %d arguments", fs.NArg())
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func newLogger(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}

type input interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

type osFile struct {
	*os.File
	size int64
}

func (f osFile) Size() int64 { return f.size }

func openInput(path string, useMmap bool) (input, error) {
	if useMmap {
		return mmap.Open(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return osFile{File: f, size: info.Size()}, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, opts.verbose)

	in, err := openInput(opts.path, opts.mmap)
	if err != nil {
		return err
	}
	defer in.Close()

	d, err := pqdecode.OpenDecoder(in, in.Size(), pqdecode.Logger(logger))
	if err != nil {
		return fmt.Errorf("%s: %w", opts.path, err)
	}

	columns := d.Columns()
	printColumns(stdout, columns)

	// Only columns with a known type can be decoded.
	var requests []pqdecode.ColumnRequest
	var decoded []pqdecode.ColumnMeta
	for _, c := range columns {
		if c.Type != 0 {
			requests = append(requests, pqdecode.ColumnRequest{Index: c.ID, Type: c.Type})
			decoded = append(decoded, c)
		}
	}

	bufs := pqdecode.NewRowGroupBuffers(len(requests))

	for g := 0; g < d.RowGroupCount(); g++ {
		if opts.group >= 0 && g != opts.group {
			continue
		}

		var n int
		if opts.rows < 0 || opts.rows >= d.RowGroupSize(g) {
			n, err = d.DecodeRowGroup(bufs, requests, g)
		} else {
			n, err = d.DecodeRowGroupSelected(bufs, requests, g, []pqdecode.Interval{{Start: 0, End: opts.rows}})
		}
		if err != nil {
			return fmt.Errorf("row group %d: %w", g, err)
		}

		fmt.Fprintf(stdout, "\nrow group %d: %d rows\n", g, d.RowGroupSize(g))
		printRows(stdout, decoded, bufs, n)

		if opts.stats {
			for i, c := range decoded {
				if err := d.UpdateColumnChunkStats(bufs, g, c.ID, i); err != nil {
					return fmt.Errorf("row group %d: %w", g, err)
				}
			}
			printStats(stdout, decoded, bufs)
		}
	}

	if opts.group >= d.RowGroupCount() {
		level.Warn(logger).Log("msg", "row group out of range", "group", opts.group, "row_groups", d.RowGroupCount())
	}
	return nil
}

func printColumns(w io.Writer, columns []pqdecode.ColumnMeta) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"id", "name", "type"})
	table.SetAutoFormatHeaders(false)
	for _, c := range columns {
		typ := c.Type.String()
		if c.Type == 0 {
			typ = "(undefined)"
		}
		table.Append([]string{fmt.Sprint(c.ID), c.Name, typ})
	}
	table.Render()
}

func printRows(w io.Writer, columns []pqdecode.ColumnMeta, bufs *pqdecode.RowGroupBuffers, n int) {
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	row := make([]string, len(columns))
	for r := 0; r < n; r++ {
		for i, c := range columns {
			row[i] = formatValue(bufs.Column(i), c.Type, r)
		}
		table.Append(row)
	}
	table.Render()
}

func printStats(w io.Writer, columns []pqdecode.ColumnMeta, bufs *pqdecode.RowGroupBuffers) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"column", "min value"})
	table.SetAutoFormatHeaders(false)
	for i, c := range columns {
		minValue := bufs.Stats(i).MinValue()
		s := "NULL"
		if len(minValue) > 0 {
			s = fmt.Sprintf("%x", minValue)
		}
		table.Append([]string{c.Name, s})
	}
	table.Render()
}
