package yahoo

import (
	"fmt"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeNetwork indicates a network-level error (connection refused, DNS, etc.)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit indicates the request was rejected due to rate limiting (HTTP 429)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer indicates a server error (HTTP 5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient indicates a client error (HTTP 4xx except 429)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeValidation indicates the response was received but data validation failed
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout indicates the request timed out
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeUnknown indicates an error of unknown type
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError 数据源请求失败
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Ticker     string
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	prefix := string(e.Type)
	if e.Ticker != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Type, e.Ticker)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("yahoo %s error (status %d): %s", prefix, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("yahoo %s error: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("yahoo %s error: %s", prefix, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Retryable 网络、超时、限流和服务端错误可以重试
func (e *FetchError) Retryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	}
	return false
}

func newNetworkError(ticker string, cause error) *FetchError {
	return &FetchError{Type: ErrorTypeNetwork, Ticker: ticker, Message: "network request failed", Cause: cause}
}

func newTimeoutError(ticker string, cause error) *FetchError {
	return &FetchError{Type: ErrorTypeTimeout, Ticker: ticker, Message: "request timed out", Cause: cause}
}

func newValidationError(ticker, message string) *FetchError {
	return &FetchError{Type: ErrorTypeValidation, Ticker: ticker, Message: message}
}

// classifyHTTPError classifies an HTTP status code into an appropriate FetchError
func classifyHTTPError(ticker string, statusCode int, body string) *FetchError {
	e := &FetchError{Ticker: ticker, StatusCode: statusCode, Message: body}
	switch {
	case statusCode == 429:
		e.Type = ErrorTypeRateLimit
	case statusCode >= 500:
		e.Type = ErrorTypeServer
	case statusCode >= 400:
		e.Type = ErrorTypeClient
	default:
		e.Type = ErrorTypeUnknown
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("unexpected status code: %d", statusCode)
	}
	return e
}
