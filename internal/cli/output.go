package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitFailure      = 1 // a query failed to compile or a scenario failed
	ExitCommandError = 2 // unusable input: missing flag, unreadable file
)

// exitError ends a command with a specific process exit code. The command
// has already reported it on the formatter.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitWith(code int, msg string) error {
	return &exitError{code: code, msg: msg}
}

// ExitCode maps a command error to the process exit code. Errors not raised
// through exitWith, such as cobra flag errors, are ExitFailure.
func ExitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitFailure
}

// OutputFormatter renders command output as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope written by every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError carries either a command code ("E004") or a compile error code
// ("UNKNOWN_LABEL").
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Success writes data as an "ok" envelope, or with fmt in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail reports code and message and returns the error that ends the
// command with exit.
func (f *OutputFormatter) Fail(exit int, code, message string) error {
	if f.JSON() {
		_ = f.encode(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message}})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	return exitWith(exit, code+": "+message)
}

// VerboseLog writes a progress line to the diagnostic stream when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.diag(), format+"\n", args...)
	}
}

// diag keeps logs off Writer so JSON output stays parseable.
func (f *OutputFormatter) diag() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
