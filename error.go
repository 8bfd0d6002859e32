package ballot

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Error wraps an engine error with the operation that failed and the frame
// of the caller, so that `%+v` shows where a ballot was rejected.
type Error struct {
	err   error
	op    string
	frame xerrors.Frame
}

// ErrorOrNil returns nil when err is nil, otherwise err annotated with op and
// the frame of the caller.
func ErrorOrNil(err error, op string) error {
	return ErrorOrNilSkip(err, op, 1)
}

// ErrorOrNilSkip is like ErrorOrNil but records the frame of the skip-nth
// caller.
func ErrorOrNilSkip(err error, op string, skip int) error {
	if err == nil {
		return nil
	}
	return &Error{
		err:   err,
		op:    op,
		frame: xerrors.Caller(skip),
	}
}

// WrapError records the caller frame without adding a message.
func WrapError(err error) error {
	return ErrorOrNilSkip(err, "", 2)
}

// Op returns the name of the failed operation, if any.
func (e *Error) Op() string {
	return e.op
}

func (e *Error) Error() string {
	if e.op != "" {
		return e.op + ": " + e.err.Error()
	}
	return e.err.Error()
}

// Unwrap returns the next error in the chain.
func (e *Error) Unwrap() error {
	return e.err
}

// Format prints the error to the formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError prints the error and, with `%+v`, the recorded frame followed
// by the wrapped chain.
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.op != "" {
		p.Printf("%s: %v", e.op, e.err)
	} else {
		p.Printf("%v", e.err)
	}
	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}
