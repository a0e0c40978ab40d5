package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Status  string     `json:"status"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	TraceID string     `json:"trace_id,omitempty"`
}

// ErrorBody describes a failed run inside an Envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Printer renders command results as JSON envelopes or plain text.
//
// Out carries results only (deletion keys or the JSON response); Diag
// receives summaries and text-mode problems and falls back to Out.
type Printer struct {
	Format string
	Out    io.Writer
	Diag   io.Writer
	RunID  string
}

// JSON reports whether results are written as envelopes.
func (p *Printer) JSON() bool { return p.Format == "json" }

// Diagnostics returns the writer for summaries and text-mode problems.
func (p *Printer) Diagnostics() io.Writer {
	if p.Diag == nil {
		return p.Out
	}
	return p.Diag
}

func (p *Printer) encode(env Envelope) error {
	env.TraceID = p.RunID
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// Result writes a successful payload. Text mode prints it with %v.
func (p *Printer) Result(data any) error {
	if !p.JSON() {
		_, err := fmt.Fprintln(p.Out, data)
		return err
	}
	return p.encode(Envelope{Status: "ok", Data: data})
}

// Problem writes an error body. Text mode prints one line to Diagnostics.
func (p *Printer) Problem(code, message string, details any) error {
	if !p.JSON() {
		_, err := fmt.Fprintf(p.Diagnostics(), "%s: %s\n", code, message)
		return err
	}
	return p.encode(Envelope{
		Status: "error",
		Error:  &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// Fail builds the ExitError for a failed command. JSON mode also writes
// the error envelope; in text mode main prints the returned error once.
func (p *Printer) Fail(status int, code, message string, err error) error {
	if p.JSON() {
		detail := message
		if err != nil {
			detail += ": " + err.Error()
		}
		_ = p.Problem(code, detail, nil)
	}
	return WrapExitError(status, code+": "+message, err)
}
