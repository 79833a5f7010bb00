package intelhex

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrShortLine  = errors.New("line too short")
	ErrInvalidHex = errors.New("invalid hex digits")
)

// ParseError describes a malformed record line. It matches its Kind with
// errors.Is.
type ParseError struct {
	Kind   error
	Line   uint
	Field  string
	Column int

	err error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d, column %d: %s in %s field", e.Line, e.Column, e.Kind, e.Field)
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool {
	return target == e.Kind
}

func (e *ParseError) Unwrap() error {
	return e.err
}
