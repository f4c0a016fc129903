package diag

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var noteColor = color.New(color.Faint)

// Printer renders diagnostics as "Warning: message" lines. Output is
// uncoloured whenever color.NoColor is set.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
	// Quiet drops SevInfo.
	Quiet bool
}

// NewPrinter writes to w.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, Quiet: quiet}
}

// Report implements Reporter.
func (p *Printer) Report(d Diagnostic) {
	if p == nil || p.w == nil {
		return
	}
	if p.Quiet && d.Severity == SevInfo {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// Best-effort: diagnostics never fail the build.
	_, _ = fmt.Fprintf(p.w, "%s %s\n", d.Severity.Label(), d.Message)
	for _, note := range d.Notes {
		_, _ = fmt.Fprintf(p.w, "  %s\n", noteColor.Sprint("note: "+note))
	}
}
