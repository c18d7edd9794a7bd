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
	// Usage errors: returned straight to the caller, never retried
	ErrInvalidURL    = errors.New("invalid url")                 // Not a well formed absolute http(s) URL
	ErrNoURLs        = errors.New("at least one url required")   // CrawlURLs called with nothing to crawl
	ErrInvalidPaths  = errors.New("invalid allow/disallow path") // Bad glob pattern list
	ErrInvalidPolicy = errors.New("invalid redirect policy")

	// Protocol errors: caught at the fetch boundary and turned into an empty document
	ErrRedirectWithoutLocation = errors.New("redirect without Location header")
	ErrRedirectNotAllowed      = errors.New("redirect not allowed")
	ErrRedirectOutOfScope      = errors.New("redirect outside allowed scope")
	ErrTooManyRedirects        = errors.New("too many redirects")
	ErrNoResponse              = errors.New("no response") // Transport failure or timeout

	ErrRetryFailed        = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrRequestCreation    = errors.New("failed to create HTTP request")
	ErrResponseBodyRead   = errors.New("failed to read response body")
	ErrParsing            = errors.New("parsing error")
	ErrMarkdownConversion = errors.New("failed to convert HTML to markdown")

	// Persistence
	ErrAlreadyExists = errors.New("already exists") // Unique URL key already present
	ErrNotFound      = errors.New("not found")
	ErrDatabase      = errors.New("database error")
	ErrFilesystem    = errors.New("filesystem error")

	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging and URL records.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Usage_InvalidURL"
	case errors.Is(err, ErrNoURLs):
		return "Usage_NoURLs"
	case errors.Is(err, ErrInvalidPaths):
		return "Usage_InvalidPaths"
	case errors.Is(err, ErrInvalidPolicy):
		return "Usage_InvalidPolicy"
	case errors.Is(err, ErrRedirectWithoutLocation):
		return "Redirect_MissingLocation"
	case errors.Is(err, ErrRedirectNotAllowed):
		return "Redirect_NotAllowed"
	case errors.Is(err, ErrRedirectOutOfScope):
		return "Redirect_OutOfScope"
	case errors.Is(err, ErrTooManyRedirects):
		return "Redirect_TooMany"
	case errors.Is(err, ErrRetryFailed):
		if isTimeout(err) {
			return "RetryFailed_NetworkTimeout"
		}
		return "RetryFailed_NetworkOther"
	case errors.Is(err, ErrNoResponse):
		if isTimeout(err) {
			return "Network_Timeout"
		}
		lowerErrMsg := strings.ToLower(err.Error())
		if strings.Contains(lowerErrMsg, "connection refused") {
			return "Network_ConnectionRefused"
		}
		if strings.Contains(lowerErrMsg, "no such host") {
			return "Network_DNSLookup"
		}
		return "Network_NoResponse"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrResponseBodyRead):
		return "Network_BodyRead"
	case errors.Is(err, ErrParsing):
		return "Content_Parsing"
	case errors.Is(err, ErrMarkdownConversion):
		return "Content_Markdown"
	case errors.Is(err, ErrAlreadyExists):
		return "Database_AlreadyExists"
	case errors.Is(err, ErrNotFound):
		return "Database_NotFound"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}
	if isTimeout(err) {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}

	return "Unknown"
}

// IsUsageError reports whether err signals caller misuse rather than a network outcome
func IsUsageError(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrNoURLs) ||
		errors.Is(err, ErrInvalidPaths) ||
		errors.Is(err, ErrInvalidPolicy)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "Timeout") || strings.Contains(msg, "deadline exceeded")
}
