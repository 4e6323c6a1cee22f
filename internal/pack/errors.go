package pack

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyLine        = errors.New("empty line")
	ErrMissingSeparator = errors.New("expected path||hash||url")
	ErrDuplicateHeader  = errors.New("duplicate minimum version header")

	ErrInvalidPath      = errors.New("invalid path")
	ErrInvalidHash      = errors.New("invalid hash")
	ErrInvalidURL       = errors.New("invalid url")
	ErrMissingURL       = errors.New("missing url")
	ErrConflictingFlags = errors.New("entry is both a deletion and download-if-missing")
)

// ParseError describes a manifest line that was skipped.
type ParseError struct {
	Line int // 1-based, 0 when decoding a lone line
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("pack: line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("pack: %v: %q", e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError is returned for an entry that must not be trusted.
type ValidationError struct {
	Entry Entry
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pack: entry %q: %v", e.Entry.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
