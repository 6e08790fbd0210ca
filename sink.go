package pqdecode

import (
	"github.com/segmentio/pqdecode/internal/bits"
)

// sink consumes the values of a page, writing them to the destination
// buffers of a column chunk.
//
// The driver calls reserve once before pushing values, then any sequence of
// push, pushSlice, pushNull, pushNulls, and skip, and finally result.
type sink interface {
	// Pre-sizes the destination buffers for a page of n rows.
	reserve(n int)
	// Consumes one value and appends it.
	push() error
	// Consumes n values and appends them.
	pushSlice(n int) error
	// Appends a null value without consuming any value.
	pushNull() error
	// Appends n null values.
	pushNulls(n int) error
	// Consumes n values without appending them.
	skip(n int) error
	// Validates the consistency of the destination buffers after the page
	// was decoded.
	result() error
}

// drive pushes the values of a page to s, returning the number of rows
// appended to the destination buffers.
func drive(s sink, levels []byte, numValues int, selected []Interval) (int, error) {
	s.reserve(numValues)

	if len(levels) == 0 && selected == nil {
		if err := s.pushSlice(numValues); err != nil {
			return 0, err
		}
		return numValues, s.result()
	}

	rows := 0
	runs := NewValidityRuns(levels, numValues, selected)

	for runs.Next() {
		run := runs.Run()
		var err error

		switch run.Kind {
		case RunValid:
			err = s.pushSlice(run.Length)
		case RunNull:
			err = s.pushNulls(run.Length)
		case RunSkipped:
			err = s.skip(run.Length)
		case RunBitmap:
			err = pushBitmap(s, run)
		}
		if err != nil {
			return 0, err
		}
		if run.Kind != RunSkipped {
			rows += run.Length
		}
	}

	if err := runs.Err(); err != nil {
		return 0, err
	}
	if selected == nil && rows != numValues {
		return 0, errLayout("definition levels of %d rows do not match the %d values of the page", rows, numValues)
	}
	return rows, s.result()
}

// pushBitmap pushes the values of a bitmap run, grouping consecutive bits of
// the same value.
func pushBitmap(s sink, run Run) error {
	for i, end := run.Offset, run.Offset+run.Length; i < end; {
		valid := bits.Test(run.Bits, i)
		j := i + 1
		for j < end && bits.Test(run.Bits, j) == valid {
			j++
		}

		var err error
		if valid {
			err = s.pushSlice(j - i)
		} else {
			err = s.pushNulls(j - i)
		}
		if err != nil {
			return err
		}
		i = j
	}
	return nil
}
