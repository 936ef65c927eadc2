package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query is invalid or returned no result where one was required
	ExitCommandError = 2 // Command error (missing schema, unreadable file, database failure)
)

// Error codes reported in JSON responses and text errors.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeSchema       = "E002" // Schema could not be loaded
	ErrCodeQueryDoc     = "E003" // Query document could not be read
	ErrCodeRender       = "E004" // SQL generation failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeExecution    = "E006" // Statement execution failed
	ErrCodeInvalidQuery = "E007" // Structural validation failed
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; keeps JSON on Writer clean
	Verbose   bool
}

// JSON reports whether the formatter emits JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data. Text output uses text when non-empty, otherwise
// prints data with fmt.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.JSON() {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: data})
	}
	if text == "" {
		text = fmt.Sprintln(data)
	}
	_, err := io.WriteString(f.Writer, text)
	return err
}

// Fail writes an error report and returns the ExitError for the command to
// return.
func (f *OutputFormatter) Fail(exitCode int, code, message string, cause error, details any) error {
	if f.JSON() {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		full := message
		if cause != nil {
			full = fmt.Sprintf("%s: %v", message, cause)
		}
		_ = enc.Encode(Response{
			Status: "error",
			Data:   details,
			Error:  &ResponseError{Code: code, Message: full},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
		if cause != nil {
			fmt.Fprintf(f.Writer, "  %v\n", cause)
		}
		if f.Verbose && details != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", details)
		}
	}
	return WrapExitError(exitCode, code+": "+message, cause)
}

// VerboseLog writes a diagnostic line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
