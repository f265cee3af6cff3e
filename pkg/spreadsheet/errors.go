package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrFileNotFound = errors.New("spreadsheet file not found")
	ErrNoColumns    = errors.New("no columns declared")
)

// ParseError reports a workbook that could not be decoded in a given format.
type ParseError struct {
	Format Format
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s as %s: %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DetectError is returned when no candidate format could decode the file.
type DetectError struct {
	Path        string
	ContentType string
	Attempts    []*ParseError
}

func (e *DetectError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Format, a.Err))
	}
	msg := fmt.Sprintf("unable to read %s as any spreadsheet format (%s)", e.Path, strings.Join(parts, "; "))
	if e.ContentType != "" {
		msg += "; detected content type " + e.ContentType
	}
	return msg
}

func (e *DetectError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a)
	}
	return out
}
