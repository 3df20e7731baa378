package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by every adapter. Provider specific failures are
// mapped onto one of these and wrapped in *Error.
var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrNotFound             = errors.New("not found")
	ErrEmptyQuery           = errors.New("empty query")
	ErrQueryTooShort        = errors.New("query too short")
	ErrUnexpectedResponse   = errors.New("unexpected response")
	ErrFileSystemPermission = errors.New("file system permission denied")
	ErrInvalidInput         = errors.New("invalid input")
	// ErrInternal marks states that should be unreachable.
	ErrInternal = errors.New("internal logic error")
)

// Error carries the provider and operation a failure happened in. It
// unwraps to both Kind and the underlying cause, so errors.Is works for the
// taxonomy and errors.As still reaches transport errors.
type Error struct {
	Origin string
	Op     string
	Kind   error
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Origin)
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewError(origin, op string, kind error, msg string, err error) *Error {
	return &Error{Origin: origin, Op: op, Kind: kind, Msg: msg, Err: err}
}

// Kind returns the taxonomy kind of err, or nil when err is not a
// provider error.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidToken, ErrNotFound, ErrEmptyQuery, ErrQueryTooShort,
		ErrUnexpectedResponse, ErrFileSystemPermission, ErrInvalidInput, ErrInternal,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	if errors.Is(err, errors.ErrUnsupported) {
		return errors.ErrUnsupported
	}
	return nil
}

func invalidInput(origin, format string, args ...any) error {
	return NewError(origin, "normalize", ErrInvalidInput, fmt.Sprintf(format, args...), nil)
}
