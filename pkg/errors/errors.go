package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDocumentExists      = errors.New("document already exists")
	ErrShardUnavailable    = errors.New("shard unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")

	// ErrConfig covers a missing/invalid output directory or unreadable
	// input.
	ErrConfig = errors.New("configuration error")
	// ErrInputMalformed means a cleaned record could not be parsed.
	// Soft-fail: skip and count, never abort ingestion.
	ErrInputMalformed = errors.New("malformed input record")
	// ErrCorruptIndex means a lexicon entry references an out-of-range
	// shard offset, or a posting stream is truncated. Fatal at
	// index-open, per-term at query time.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrTermNotFound is non-fatal for OR (term dropped with a warning),
	// fatal-for-that-query for AND/phrase.
	ErrTermNotFound = errors.New("term not found")
	// ErrShardOutOfRange means a lexicon entry's [offset, offset+bytes)
	// range exceeds its shard file's size.
	ErrShardOutOfRange = errors.New("shard offset out of range")
	// ErrDeadlineExceeded means a query ran past its deadline before the
	// caller's requested top-K could be fully computed.
	ErrDeadlineExceeded = errors.New("query deadline exceeded")
)

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
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists), errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrShardUnavailable), errors.Is(err, ErrTimeout), errors.Is(err, ErrDeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTermNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConfig), errors.Is(err, ErrInputMalformed):
		return http.StatusBadRequest
	case errors.Is(err, ErrCorruptIndex), errors.Is(err, ErrShardOutOfRange):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}

}
