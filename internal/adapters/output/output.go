package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
)

// Printer renders progress events and command results, either as colored
// text or as JSON for automation. In JSON mode progress chatter is
// suppressed and only result documents are emitted.
type Printer struct {
	json    bool
	verbose bool
	w       io.Writer
	ew      io.Writer
}

// New creates a printer on stdout/stderr.
func New(jsonMode, verbose bool) *Printer {
	return &Printer{json: jsonMode, verbose: verbose, w: os.Stdout, ew: os.Stderr}
}

// NewWithWriters creates a printer on explicit writers, for tests.
func NewWithWriters(jsonMode, verbose bool, w, ew io.Writer) *Printer {
	return &Printer{json: jsonMode, verbose: verbose, w: w, ew: ew}
}

func (p *Printer) Info(msg string) {
	if !p.json {
		fmt.Fprintf(p.w, "%s %s\n", text.FgBlue.Sprint("[*]"), msg)
	}
}

func (p *Printer) Success(msg string) {
	if !p.json {
		fmt.Fprintf(p.w, "%s %s\n", text.FgGreen.Sprint("[+]"), msg)
	}
}

func (p *Printer) Warning(msg string) {
	if !p.json {
		fmt.Fprintf(p.w, "%s %s\n", text.FgYellow.Sprint("[!]"), msg)
	}
}

func (p *Printer) Error(msg string) {
	if !p.json {
		fmt.Fprintf(p.ew, "%s %s\n", text.FgRed.Sprint("[-]"), msg)
	}
}

// Prompt writes an inline question, no trailing newline. Suppressed in
// JSON mode like the rest of the chatter.
func (p *Printer) Prompt(msg string) {
	if !p.json {
		fmt.Fprint(p.w, msg)
	}
}

// JSONMode reports whether result documents are the only output.
func (p *Printer) JSONMode() bool {
	return p.json
}

// Debug carries high-volume progress frames; shown only with --verbose.
func (p *Printer) Debug(msg string) {
	if !p.json && p.verbose {
		fmt.Fprintf(p.w, "%s %s\n", text.Faint.Sprint("[D]"), text.Faint.Sprint(msg))
	}
}

// JSON emits a result document in JSON mode.
func (p *Printer) JSON(v any) {
	if !p.json {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(p.w, string(data))
}
