package pqdecode

import (
	"sort"

	"github.com/segmentio/pqdecode/encoding/rle"
	"github.com/segmentio/pqdecode/internal/bits"
)

// Interval is a half-open range of rows [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns the number of rows in the interval.
func (iv Interval) Len() int { return iv.End - iv.Start }

func validateIntervals(intervals []Interval) error {
	for i, iv := range intervals {
		if iv.Start < 0 || iv.End < iv.Start {
			return errInvalid("invalid row interval [%d,%d)", iv.Start, iv.End)
		}
		if i > 0 && iv.Start < intervals[i-1].End {
			return errInvalid("row intervals [%d,%d) and [%d,%d) are not ordered or overlap",
				intervals[i-1].Start, intervals[i-1].End, iv.Start, iv.End)
		}
	}
	return nil
}

// clipIntervals returns the intervals intersecting the rows [start, end),
// relative to start. The intervals must be ordered.
func clipIntervals(dst, intervals []Interval, start, end int) []Interval {
	i := sort.Search(len(intervals), func(i int) bool { return intervals[i].End > start })
	for _, iv := range intervals[i:] {
		if iv.Start >= end {
			break
		}
		s, e := max(iv.Start, start), min(iv.End, end)
		if s < e {
			dst = append(dst, Interval{Start: s - start, End: e - start})
		}
	}
	return dst
}

func intervalsLen(intervals []Interval) int {
	n := 0
	for _, iv := range intervals {
		n += iv.Len()
	}
	return n
}

// RunKind is the kind of validity runs.
type RunKind uint8

const (
	// The validity of Length rows is given by the bits of Bits starting at
	// Offset, LSB first.
	RunBitmap RunKind = iota
	// Length rows are all present.
	RunValid
	// Length rows are all null.
	RunNull
	// Rows were filtered out, Length is the number of non-null values they
	// hold which must be skipped from the values of the page.
	RunSkipped
)

func (k RunKind) String() string {
	switch k {
	case RunBitmap:
		return "Bitmap"
	case RunValid:
		return "RepeatedValid"
	case RunNull:
		return "RepeatedNull"
	case RunSkipped:
		return "Skipped"
	default:
		return "RunKind(?)"
	}
}

// Run is an element of the sequence produced by ValidityRuns.
type Run struct {
	Kind   RunKind
	Bits   []byte
	Offset int
	Length int
}

// ValidityRuns turns the definition levels of a page into a sequence of
// validity runs. The sequence is forward-only:
//
//	runs := NewValidityRuns(levels, numValues, nil)
//	for runs.Next() {
//		run := runs.Run()
//		...
//	}
//	if err := runs.Err(); err != nil {
//		...
//	}
type ValidityRuns struct {
	levels    rle.Decoder
	hasLevels bool
	remain    int
	row       int
	base      Run
	selected  []Interval
	filtered  bool
	run       Run
	err       error
}

// NewValidityRuns returns the validity runs of a page of numValues rows with
// the given definition levels, which are the hybrid encoded stream of levels
// of bit width 1. An empty stream means that all rows are present.
//
// When selected is not nil, only the rows within the intervals are produced,
// other rows are reported by RunSkipped runs.
func NewValidityRuns(levels []byte, numValues int, selected []Interval) *ValidityRuns {
	r := &ValidityRuns{
		hasLevels: len(levels) > 0,
		remain:    numValues,
		selected:  selected,
		filtered:  selected != nil,
	}
	r.levels.Reset(levels, 1)
	return r
}

// Run returns the run positioned by the last call to Next.
func (r *ValidityRuns) Run() Run { return r.run }

// Err returns the error that interrupted the sequence, if any.
func (r *ValidityRuns) Err() error { return r.err }

// Next positions r on the next run, returning false at the end of the
// sequence or when an error occurred.
func (r *ValidityRuns) Next() bool {
	if r.err != nil {
		return false
	}

	for {
		if r.filtered {
			for len(r.selected) > 0 && r.row >= r.selected[0].End {
				r.selected = r.selected[1:]
			}
			if len(r.selected) == 0 {
				return false
			}
		}

		if r.base.Length == 0 {
			if r.remain == 0 {
				return false
			}
			if err := r.loadBase(); err != nil {
				r.err = err
				return false
			}
		}

		if !r.filtered {
			r.run = r.base
			r.consume(r.base.Length)
			return true
		}

		iv := r.selected[0]
		if r.row < iv.Start {
			k := min(iv.Start-r.row, r.base.Length)
			skip := r.validCount(k)
			r.consume(k)
			if skip == 0 {
				continue
			}
			r.run = Run{Kind: RunSkipped, Length: skip}
			return true
		}

		k := min(iv.End-r.row, r.base.Length)
		r.run = r.base
		r.run.Length = k
		r.consume(k)
		return true
	}
}

func (r *ValidityRuns) loadBase() error {
	if !r.hasLevels {
		r.base = Run{Kind: RunValid, Length: r.remain}
		r.remain = 0
		return nil
	}

	run, err := r.levels.Peek()
	if err != nil {
		return withContext(err, "decoding definition levels with %d values remaining", r.remain)
	}
	k := min(run.Count, r.remain)

	switch {
	case run.Packed:
		r.base = Run{Kind: RunBitmap, Bits: run.Bytes, Offset: run.Offset, Length: k}
	case run.Value == 1:
		r.base = Run{Kind: RunValid, Length: k}
	case run.Value == 0:
		r.base = Run{Kind: RunNull, Length: k}
	default:
		return errLayout("invalid definition level %d of a required or optional column", run.Value)
	}

	r.levels.Advance(k)
	r.remain -= k
	return nil
}

func (r *ValidityRuns) validCount(n int) int {
	switch r.base.Kind {
	case RunBitmap:
		return bits.CountOnes(r.base.Bits, r.base.Offset, n)
	case RunValid:
		return n
	default:
		return 0
	}
}

func (r *ValidityRuns) consume(n int) {
	if r.base.Kind == RunBitmap {
		r.base.Offset += n
	}
	r.base.Length -= n
	r.row += n
}
