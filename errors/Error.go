package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a coded error. Two errors are considered the same by Is when
// their codes match, anywhere along the chain of wrapped *Error values.
type Error struct {
	code       ERR
	message    string
	wrappedErr error
	data       ErrDataI
}

// ErrDataI is structured detail attached to an error.
type ErrDataI interface {
	Error() string
	GetData(key string) interface{}
}

type Interface interface {
	Error() string
	Is(target error) bool
	As(target interface{}) bool
	Unwrap() error

	Code() ERR
	Message() string
	WrappedErr() error
	Data() ErrDataI
}

var _ Interface = (*Error)(nil)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%d): %s", e.code, e.code, e.message)

	if e.data != nil {
		fmt.Fprintf(&sb, " [%s]", e.data.Error())
	}

	if e.wrappedErr != nil {
		sb.WriteString(" -> ")
		sb.WriteString(e.wrappedErr.Error())
	}

	return sb.String()
}

// Is reports whether target is an *Error with the code of e or of any *Error
// wrapped by e.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var targetErr *Error
	if !errors.As(target, &targetErr) || targetErr == nil {
		return false
	}

	for current := e; current != nil; {
		if current.code == targetErr.code {
			return true
		}

		next, ok := current.wrappedErr.(*Error)
		if !ok {
			return false
		}

		current = next
	}

	return false
}

// As sets target to e when target is an **Error, or to the attached data when
// its type matches.
func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	if e.data != nil {
		if dataErr, ok := e.data.(error); ok && errors.As(dataErr, target) {
			return true
		}
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

func (e *Error) WrappedErr() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Data() ErrDataI {
	if e == nil {
		return nil
	}

	return e.data
}

// GetData returns the value stored under key in the attached data, if any.
func (e *Error) GetData(key string) interface{} {
	if e == nil || e.data == nil {
		return nil
	}

	return e.data.GetData(key)
}

// New creates a coded error. message is formatted with params, except for a
// trailing error param, which is wrapped, and a trailing nil, which is dropped.
func New(code ERR, message string, params ...interface{}) *Error {
	var wrapped error

	if n := len(params); n > 0 {
		switch last := params[n-1].(type) {
		case error:
			wrapped = last
			params = params[:n-1]
		case nil:
			params = params[:n-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	if _, ok := ERR_name[int32(code)]; !ok {
		message = "invalid error code"
	}

	return &Error{
		code:       code,
		message:    message,
		wrappedErr: wrapped,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// AsData walks the chain of err and sets target to the first attached data
// of a matching type.
func AsData(err error, target interface{}) bool {
	for err != nil {
		var tErr *Error
		if !errors.As(err, &tErr) {
			return false
		}

		if tErr.data != nil {
			if dataErr, ok := tErr.data.(error); ok && errors.As(dataErr, target) {
				return true
			}
		}

		err = tErr.wrappedErr
	}

	return false
}

// Join returns an error wrapping every non-nil err, or nil when there is none.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
