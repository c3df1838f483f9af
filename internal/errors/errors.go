// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a session has no stored result list or no
	// stored record carries the requested identifier.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidSignature indicates the webhook request failed LINE signature verification.
	ErrInvalidSignature = webhook.ErrInvalidSignature

	// ErrEmptyBody indicates a remote resource answered with zero bytes.
	ErrEmptyBody = errors.New("empty response body")
)

// FetchError represents a failure reaching the dataset or an asset over the network.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error (url=%s): %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new fetch error.
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ParseError represents a dataset document that could not be decoded into rows.
// Column is set when a required header is missing; Line is set for malformed rows.
type ParseError struct {
	Column string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("parse error (column=%s): %v", e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("parse error (line=%d): %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("parse error: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new parse error.
func NewParseError(column string, line int, err error) *ParseError {
	return &ParseError{
		Column: column,
		Line:   line,
		Err:    err,
	}
}

// DecodeError represents asset bytes that are not a recognizable media container.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (url=%s): %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new decode error.
func NewDecodeError(url string, err error) *DecodeError {
	return &DecodeError{
		URL: url,
		Err: err,
	}
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
