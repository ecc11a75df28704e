package wire

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies codec failures so callers can tell a caller bug from
// a buffer that is merely too small.
type ErrorKind uint8

const (
	// KindInvalidSize reports a negative or non-positive size argument
	KindInvalidSize ErrorKind = iota + 1
	// KindOutOfRange reports a cursor or field number outside its legal range
	KindOutOfRange
	// KindBufferUnderrun reports a read past the limit
	KindBufferUnderrun
	// KindBufferOverrun reports a write past the capacity
	KindBufferOverrun
	// KindUnimplemented reports a deferred field type or wire type
	KindUnimplemented
	// KindInvalidFieldType reports a field type index outside 0..MaxFieldType
	KindInvalidFieldType
	// KindTypeMismatch reports a Go value or wire type that disagrees with the declared field type
	KindTypeMismatch
)

var kindNames = [...]string{
	KindInvalidSize:      "invalid size",
	KindOutOfRange:       "out of range",
	KindBufferUnderrun:   "buffer underrun",
	KindBufferOverrun:    "buffer overrun",
	KindUnimplemented:    "unimplemented",
	KindInvalidFieldType: "invalid field type",
	KindTypeMismatch:     "type mismatch",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the typed failure returned by every operation in this package.
type Error struct {
	Kind ErrorKind
	Op   string // operation that detected the failure, e.g. "ReadRawVarint"
	Msg  string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("wire: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	return sb.String()
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBufferUnderrun)
// works regardless of Op and Msg.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidSize      = &Error{Kind: KindInvalidSize}
	ErrOutOfRange       = &Error{Kind: KindOutOfRange}
	ErrBufferUnderrun   = &Error{Kind: KindBufferUnderrun}
	ErrBufferOverrun    = &Error{Kind: KindBufferOverrun}
	ErrUnimplemented    = &Error{Kind: KindUnimplemented}
	ErrInvalidFieldType = &Error{Kind: KindInvalidFieldType}
	ErrTypeMismatch     = &Error{Kind: KindTypeMismatch}
)

func newError(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func underrun(op string, pos, need, limit int) *Error {
	return newError(KindBufferUnderrun, op, "offset=%d need=%d limit=%d", pos, need, limit)
}

func overrun(op string, pos, need, capacity int) *Error {
	return newError(KindBufferOverrun, op, "offset=%d need=%d capacity=%d", pos, need, capacity)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return 0
}

// IsRecoverable reports whether err only means the buffer was too small or
// not yet filled. Such failures can be retried after resizing or once more
// data arrives; every other kind is a caller bug.
func IsRecoverable(err error) bool {
	switch KindOf(err) {
	case KindBufferUnderrun, KindBufferOverrun:
		return true
	}
	return false
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath  []string // e.g., ["header", "digest"]
	Err        error    // underlying error
	IsDecoding bool
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	op := "encoding"
	if e.IsDecoding {
		op = "decoding"
	}
	return fmt.Sprintf("%s error at field path %s: %v", op, strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapEncodingFieldError prefixes err's field path with fieldName. Nested
// calls build the path outermost first.
func WrapEncodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, false)
}

// WrapDecodingFieldError is WrapEncodingFieldError for the decode path.
func WrapDecodingFieldError(err error, fieldName string) error {
	return wrapFieldError(err, fieldName, true)
}

func wrapFieldError(err error, fieldName string, decoding bool) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath:  append([]string{fieldName}, fe.FieldPath...),
			Err:        fe.Err,
			IsDecoding: fe.IsDecoding,
		}
	}

	return &FieldError{
		FieldPath:  []string{fieldName},
		Err:        err,
		IsDecoding: decoding,
	}
}
