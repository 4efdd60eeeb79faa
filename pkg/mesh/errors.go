package mesh

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput        = errors.New("uploaded file is empty")
	ErrUnsupportedFormat = errors.New("unsupported or malformed mesh file")
	ErrEmptyMesh         = errors.New("file does not contain a valid 3D mesh")
)

// FormatError describes why a file could not be parsed. It always matches
// ErrUnsupportedFormat with errors.Is.
type FormatError struct {
	Format Format
	Line   int
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	prefix := "mesh"
	if e.Format != FormatUnknown {
		prefix = string(e.Format)
	}
	msg := fmt.Sprintf("%s: %s", prefix, e.Reason)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d: %s", prefix, e.Line, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnsupportedFormat, e.Err}
	}
	return []error{ErrUnsupportedFormat}
}

// Malformed returns a FormatError for format at line (0 when not line based).
func Malformed(format Format, line int, reason string, err error) error {
	return &FormatError{Format: format, Line: line, Reason: reason, Err: err}
}

// IsInputError reports whether err is caused by the uploaded file itself
// rather than by the service. Input errors are never retried.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyMesh)
}
