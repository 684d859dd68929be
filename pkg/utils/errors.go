package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrTimeout         = errors.New("request timed out")            // Connect or read deadline exceeded
	ErrConnection      = errors.New("connection failed")            // DNS, TCP, TLS, reset
	ErrClientHTTPError = errors.New("client HTTP error (4xx)")      // Wraps original status
	ErrServerHTTPError = errors.New("server HTTP error (5xx)")      // Wraps original status
	ErrOtherHTTPError  = errors.New("other HTTP error (non-2xx)")   // Wraps original status
	ErrRequestCreation = errors.New("failed to create HTTP request")
	ErrFilesystem      = errors.New("filesystem error") // Wraps os errors on document writes
	ErrDatabase        = errors.New("database error")   // Wraps badger errors
	ErrEmptyBody       = errors.New("empty response body")
	ErrConfigValidation = errors.New("configuration validation error")
)

// IsTransient reports whether a fetch error is worth retrying. Only timeouts
// and connection failures may succeed on a later attempt; any HTTP status
// response and local I/O failures are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrConnection):
		return true
	case errors.Is(err, ErrClientHTTPError), errors.Is(err, ErrServerHTTPError),
		errors.Is(err, ErrOtherHTTPError),
		errors.Is(err, ErrFilesystem), errors.Is(err, ErrRequestCreation):
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// CategorizeError maps an error to a predefined category string for the
// progress log and run summary.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrTimeout):
		return "Network_Timeout"
	case errors.Is(err, ErrConnection):
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "connection refused") {
			return "Network_ConnectionRefused"
		}
		if strings.Contains(errMsg, "no such host") {
			return "Network_DNSLookup"
		}
		if strings.Contains(errMsg, "reset by peer") {
			return "Network_ConnectionReset"
		}
		if strings.Contains(errMsg, "tls") || strings.Contains(errMsg, "certificate") {
			return "Network_TLS"
		}
		return "Network_ConnectionOther"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrEmptyBody):
		return "Network_EmptyBody"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "IOError_Permission"
		}
		return "IOError"
	case errors.Is(err, ErrDatabase):
		return "Database"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---
	if errors.Is(err, context.Canceled) {
		return "Cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Network_Timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Network_Timeout"
		}
		return "Network_Other"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded") {
		return "Network_Timeout"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}

	return "Unknown"
}
