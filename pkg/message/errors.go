package message

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them; the header, URI, method and
// status code errors all match ErrInvalidArgument as well.
var (
	ErrInvalidArgument   = errors.New("message: invalid argument")
	ErrInvalidHeader     = fmt.Errorf("%w: header", ErrInvalidArgument)
	ErrInvalidUri        = fmt.Errorf("%w: uri", ErrInvalidArgument)
	ErrInvalidMethod     = fmt.Errorf("%w: method", ErrInvalidArgument)
	ErrInvalidStatusCode = fmt.Errorf("%w: status code", ErrInvalidArgument)

	ErrUploadError  = errors.New("message: upload error")
	ErrAlreadyMoved = errors.New("message: uploaded file already moved")

	ErrStreamClosed      = errors.New("message: stream is closed")
	ErrStreamDetached    = errors.New("message: stream is detached")
	ErrStreamUnsupported = errors.New("message: operation not supported by stream")
)

// Error describes a failed operation on a message component.
type Error struct {
	Op  string // operation, e.g. "with header"
	Msg string // human-readable detail
	Err error  // sentinel the error matches
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("message: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("message: %s: %s", e.Op, e.Msg)
}

// Unwrap returns the sentinel error.
func (e *Error) Unwrap() error { return e.Err }

func newError(op string, err error, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}
