package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/docforge/backend/internal/domain/shared"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // generation or operation failed
	ExitCommandError = 2 // bad flags, unreadable input, startup failure
)

// ExitError carries the process exit code for an error returned by a command.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Invalid input is a command error; anything else without an ExitError is a failure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, shared.ErrInvalidInput) {
		return ExitCommandError
	}
	return ExitFailure
}

// Response is the JSON envelope written with --format json.
type Response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command in JSON output.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// printer writes command results as text or as a JSON envelope
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) *printer {
	return &printer{format: opts.Format, w: w}
}

// success prints data as JSON, or calls text for the human-readable form
func (p *printer) success(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		return p.writeJSON(Response{Status: "ok", Data: data})
	}
	text(p.w)
	return nil
}

// table prints rows under a header aligned in columns
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, r := range rows {
		writeRow(tw, r)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cols []string) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteError reports err on w in the requested format.
func WriteError(w io.Writer, format string, err error) {
	if format == "json" {
		code := "ERROR"
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			code = domainErr.Code
		}
		p := &printer{format: format, w: w}
		_ = p.writeJSON(Response{Status: "error", Error: &ResponseError{Code: code, Message: err.Error()}})
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
