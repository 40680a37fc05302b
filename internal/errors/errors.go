package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is a coded error raised by the type system, the schema model or the
// planner. Error() returns the message verbatim so that callers can surface it
// to the query issuer unchanged.
type Error struct {
	Code     string // SQLSTATE code
	Message  string // Primary error message
	Detail   string // Optional detailed error message
	Hint     string // Optional hint message
	Column   string // Column name if applicable
	DataType string // Data type name if applicable
	Source   string // Source or sink name if applicable
	cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Verbose renders the message together with its code and detail.
func (e *Error) Verbose() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (SQLSTATE %s) DETAIL: %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
}

// Unwrap returns the error this one was derived from, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the classification of the error.
func (e *Error) Kind() Kind {
	return KindOf(e.Code)
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithColumn sets the column name
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// WithDataType sets the data type name
func (e *Error) WithDataType(dataType string) *Error {
	e.DataType = dataType
	return e
}

// WithSource sets the source or sink name
func (e *Error) WithSource(source string) *Error {
	e.Source = source
	return e
}

// WithCause records the error this one wraps.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// IsError checks if an error is an Error with a specific code
func IsError(err error, code string) bool {
	qErr := asError(err)
	return qErr != nil && qErr.Code == code
}

// IsDataError reports whether err is a data validation failure.
func IsDataError(err error) bool {
	return kindOf(err) == KindData
}

// IsPlanError reports whether err is a type, schema or plan construction failure.
func IsPlanError(err error) bool {
	return kindOf(err) == KindPlan
}

// IsInternal reports whether err is an internal invariant violation.
func IsInternal(err error) bool {
	return kindOf(err) == KindInternal
}

// IsClientError reports whether err is a malformed or oversized query response.
func IsClientError(err error) bool {
	return kindOf(err) == KindClient
}

// GetError attempts to extract an Error from any error
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if qErr := asError(err); qErr != nil {
		return qErr
	}
	// Wrap generic errors as internal errors
	return InternalErrorf("%v", err).WithCause(err)
}

func asError(err error) *Error {
	var qErr *Error
	if stderrors.As(err, &qErr) {
		return qErr
	}
	return nil
}

func kindOf(err error) Kind {
	if qErr := asError(err); qErr != nil {
		return qErr.Kind()
	}
	return KindUnknown
}
