// Package errors defines stable error codes and the structured error type
// shared across the librarian core.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RepoNotFound indicates the repository root doesn't exist
	RepoNotFound ErrorCode = "REPO_NOT_FOUND"
	// FileNotFound indicates a cited or referenced file doesn't exist
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// LineOutOfRange indicates a cited line exceeds the file length
	LineOutOfRange ErrorCode = "LINE_OUT_OF_RANGE"
	// ParseFailed indicates a source file could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// IndexUnavailable indicates a persistent index (FTS/SCIP) is missing or corrupt
	IndexUnavailable ErrorCode = "INDEX_UNAVAILABLE"
	// InvalidQuery indicates an empty or malformed search query
	InvalidQuery ErrorCode = "INVALID_QUERY"
	// InvalidConfig indicates a configuration contradiction
	InvalidConfig ErrorCode = "INVALID_CONFIG"
	// ProviderFailed indicates a pluggable scorer/graph provider errored
	ProviderFailed ErrorCode = "PROVIDER_FAILED"
	// Timeout indicates an operation exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// LibrarianError represents a librarian error with code, message, and suggestions
type LibrarianError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new LibrarianError
func New(code ErrorCode, message string, cause error) *LibrarianError {
	return &LibrarianError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *LibrarianError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LibrarianError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LibrarianError) WithDetails(details interface{}) *LibrarianError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	RepoNotFound: {
		{
			Type:        RunCommand,
			Command:     "librarian facts --repo <path>",
			Safe:        true,
			Description: "Verify the repository path and re-run extraction",
		},
	},
	IndexUnavailable: {
		{
			Type:        RunCommand,
			Command:     "librarian retrieve --rebuild-index",
			Safe:        true,
			Description: "Rebuild the persistent lexical index",
		},
	},
	InvalidConfig: {
		{
			Type:        RunCommand,
			Command:     "librarian check --print-config",
			Safe:        true,
			Description: "Print the effective configuration and fix the invalid field",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
