package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeInvalidSelector    = "INVALID_SELECTOR"
	ErrCodeInvalidContent     = "INVALID_CONTENT"
	ErrCodeProxyUnavailable   = "PROXY_UNAVAILABLE"
	ErrCodeRetriesExhausted   = "RETRIES_EXHAUSTED"
	ErrCodeInitFailed         = "INIT_FAILED"
	ErrCodeExtractFailed      = "EXTRACT_FAILED"
	ErrCodeEmptyManager       = "EMPTY_MANAGER"
	ErrCodeDuplicateKey       = "DUPLICATE_KEY"
	ErrCodeDuplicateProcessor = "DUPLICATE_PROCESSOR"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CrawlError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}

// Errorf creates a CrawlError without a wrapped cause.
func Errorf(code, format string, args ...any) *CrawlError {
	return &CrawlError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *CrawlError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{Code: e.Code, Message: msg}
}

// CodeOf returns the code of the outermost CrawlError in err's chain,
// or "" when there is none.
func CodeOf(err error) string {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether any CrawlError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ce *CrawlError
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Err
	}
	return false
}
