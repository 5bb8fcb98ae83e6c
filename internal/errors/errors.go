package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// IOFailure indicates a watched file could not be read (locked, removed mid-read)
	IOFailure ErrorCode = "IO_FAILURE"
	// AnalyzerUnavailable indicates an analyzer binary is missing or crashed
	AnalyzerUnavailable ErrorCode = "ANALYZER_UNAVAILABLE"
	// AnalyzerTimeout indicates an analyzer did not finish within its timeout
	AnalyzerTimeout ErrorCode = "ANALYZER_TIMEOUT"
	// UsageError indicates invalid command-line input
	UsageError ErrorCode = "USAGE_ERROR"
	// ConfigInvalid indicates a configuration file could not be used
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// InstallMethod represents methods for installing tools
type InstallMethod string

const (
	// Pip installation via pip
	Pip InstallMethod = "pip"
	// Pipx installation via pipx
	Pipx InstallMethod = "pipx"
	// Manual installation
	Manual InstallMethod = "manual"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType   `json:"type"`
	Command     string          `json:"command,omitempty"`
	Safe        bool            `json:"safe,omitempty"`
	Description string          `json:"description,omitempty"`
	Tool        string          `json:"tool,omitempty"`
	Methods     []InstallMethod `json:"methods,omitempty"`
}

// LinewatchError represents an error with code, message, and suggestions
type LinewatchError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new LinewatchError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *LinewatchError {
	return &LinewatchError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *LinewatchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LinewatchError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LinewatchError) WithDetails(details interface{}) *LinewatchError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first LinewatchError in err's chain,
// or the empty code if there is none.
func CodeOf(err error) ErrorCode {
	var lw *LinewatchError
	if errors.As(err, &lw) {
		return lw.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	AnalyzerUnavailable: {
		{
			Type:        RunCommand,
			Command:     "linewatch doctor",
			Safe:        true,
			Description: "Check which analyzers are installed",
		},
	},
	AnalyzerTimeout: {
		{
			Type:        RunCommand,
			Command:     "linewatch config show",
			Safe:        true,
			Description: "Inspect analyzers.timeoutMs and raise it for slow tools",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "linewatch config init --force",
			Safe:        false,
			Description: "Regenerate the default configuration",
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

// InstallFix returns an install suggestion for a Python analysis tool.
func InstallFix(tool string) FixAction {
	return FixAction{
		Type:        InstallTool,
		Command:     "pip install " + tool,
		Description: fmt.Sprintf("Install %s into the active Python environment", tool),
		Tool:        tool,
		Methods:     []InstallMethod{Pip, Pipx},
	}
}
