// Package errors defines the error taxonomy shared by the indexing and query
// pipelines and maps it onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrIndexIO          = errors.New("index storage error")
	ErrQuerySyntax      = errors.New("query syntax error")
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownCorpus    = errors.New("unknown corpus")
	ErrUnknownField     = errors.New("unknown field")
	ErrInvalidInput     = errors.New("invalid input")
	ErrLyricsNotFound   = errors.New("lyrics not found")
	ErrInternal         = errors.New("internal error")
)

// MalformedRecordError reports a source record that lacks a required attribute.
type MalformedRecordError struct {
	Kind   string
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record #%d: %s", e.Kind, e.Index, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// IndexIOError wraps a storage failure while building or opening an index.
// It is fatal for the build or session that hit it.
type IndexIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IndexIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("index %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("index %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IndexIOError) Unwrap() error {
	return e.Err
}

func (e *IndexIOError) Is(target error) bool {
	return target == ErrIndexIO
}

// NewIndexIOError builds an IndexIOError for the given operation.
func NewIndexIOError(op, path string, err error) *IndexIOError {
	return &IndexIOError{Op: op, Path: path, Err: err}
}

// QuerySyntaxError is returned by the query parser. It is always recoverable.
type QuerySyntaxError struct {
	Query  string
	Pos    int
	Reason string
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("query syntax error at position %d: %s", e.Pos, e.Reason)
}

func (e *QuerySyntaxError) Is(target error) bool {
	return target == ErrQuerySyntax
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrLyricsNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuerySyntax),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownCorpus),
		errors.Is(err, ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexIO):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
