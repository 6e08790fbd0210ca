package pqdecode

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/parquet-go/parquet-go/format"

	"github.com/segmentio/pqdecode/compress"
	"github.com/segmentio/pqdecode/encoding/delta"
	"github.com/segmentio/pqdecode/encoding/rle"
)

// ErrorKind classifies the errors returned by the decoder.
type ErrorKind int

const (
	// Invalid reports a misuse of the API, an out of range index, a column
	// type mismatch, or malformed file metadata.
	Invalid ErrorKind = iota + 1
	// Unsupported reports a combination of types and encodings, or a file
	// version, that the decoder cannot handle.
	Unsupported
	// Layout reports corrupted or truncated page data.
	Layout
	// IO reports a failure to read from the underlying file.
	IO
)

func (k ErrorKind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Unsupported:
		return "unsupported"
	case Layout:
		return "layout"
	case IO:
		return "io"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	// Sentinel values matching errors of each kind with errors.Is.
	ErrInvalid     = &Error{Kind: Invalid}
	ErrUnsupported = &Error{Kind: Unsupported}
	ErrLayout      = &Error{Kind: Layout}
	ErrIO          = &Error{Kind: IO}
)

// Error is the type of all errors returned by the decoder.
type Error struct {
	Kind ErrorKind
	// Human readable description, prefixed by the context in which the
	// error occurred.
	Message string
	// Discriminators of the page which could not be decoded, only set on
	// Unsupported errors of the decode dispatcher.
	Cell *Cell
	// Underlying cause, may be nil.
	Err error
}

func (e *Error) Error() string {
	s := new(strings.Builder)
	s.WriteString(e.Message)
	if e.Err != nil {
		if s.Len() > 0 {
			s.WriteString(": ")
		}
		s.WriteString(e.Err.Error())
	}
	return s.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors that only carry a kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Cell == nil && t.Kind == e.Kind
}

// Cell holds the discriminators of the decode dispatch table.
type Cell struct {
	PhysicalType  format.Type
	TypeLength    int
	Encoding      format.Encoding
	LogicalType   string
	ConvertedType string
	HasDictionary bool
	ColumnType    ColumnType
	Format        ColumnFormat
}

func (c *Cell) String() string {
	physical := c.PhysicalType.String()
	if c.PhysicalType == format.FixedLenByteArray {
		physical = fmt.Sprintf("%s(%d)", physical, c.TypeLength)
	}
	return fmt.Sprintf("physical type %s, encoding %s, logical type %s, converted type %s, dictionary %t, column type %s",
		physical, c.Encoding, c.LogicalType, c.ConvertedType, c.HasDictionary, c.ColumnType)
}

func errInvalid(msg string, args ...any) *Error {
	return &Error{Kind: Invalid, Message: fmt.Sprintf(msg, args...)}
}

func errUnsupported(msg string, args ...any) *Error {
	return &Error{Kind: Unsupported, Message: fmt.Sprintf(msg, args...)}
}

func errLayout(msg string, args ...any) *Error {
	return &Error{Kind: Layout, Message: fmt.Sprintf(msg, args...)}
}

func errIO(err error, msg string, args ...any) *Error {
	return &Error{Kind: IO, Message: fmt.Sprintf(msg, args...), Err: err}
}

func unsupportedCell(cell Cell) *Error {
	return &Error{
		Kind:    Unsupported,
		Message: "unsupported column chunk: " + cell.String(),
		Cell:    &cell,
	}
}

// classify converts err into an *Error, errors of sub-packages are reported
// as layout errors since they result from decoding corrupted pages.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, compress.ErrNotSupported):
		return &Error{Kind: Unsupported, Err: err}
	case errors.Is(err, rle.ErrTruncated), errors.Is(err, rle.ErrInvalidBitWidth),
		errors.Is(err, delta.ErrTruncated), errors.Is(err, delta.ErrCorrupted):
		return &Error{Kind: Layout, Err: err}
	case isIOError(err):
		return &Error{Kind: IO, Err: err}
	default:
		return &Error{Kind: Layout, Err: err}
	}
}

func isIOError(err error) bool {
	var pathErr *fs.PathError
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, fs.ErrClosed) || errors.As(err, &pathErr)
}

// withContext prefixes the message of err, preserving its kind.
func withContext(err error, msg string, args ...any) *Error {
	e := classify(err)
	prefix := fmt.Sprintf(msg, args...)
	wrapped := *e
	if wrapped.Message != "" {
		wrapped.Message = prefix + ": " + wrapped.Message
	} else {
		wrapped.Message = prefix
	}
	return &wrapped
}
