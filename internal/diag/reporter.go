package diag

import "sync"

// Reporter receives diagnostics from the pipeline.
type Reporter interface {
	Report(d Diagnostic)
}

// Info reports an informational message through r. A nil r drops it.
func Info(r Reporter, code Code, msg string, notes ...string) {
	emit(r, SevInfo, code, msg, notes)
}

// Warning reports a warning through r.
func Warning(r Reporter, code Code, msg string, notes ...string) {
	emit(r, SevWarning, code, msg, notes)
}

func emit(r Reporter, sev Severity, code Code, msg string, notes []string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: sev, Code: code, Message: msg, Notes: notes})
}

// BagReporter адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

// Report implements Reporter.
func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// Bag accumulates diagnostics. It is safe for concurrent use.
type Bag struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewBag returns an empty Bag.
func NewBag() *Bag { return &Bag{} }

// Add appends d.
func (b *Bag) Add(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, d)
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Items returns a copy of the collected diagnostics.
func (b *Bag) Items() []Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// HasWarnings reports whether any diagnostic is at least a warning.
func (b *Bag) HasWarnings() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

// ReportTo forwards the collected diagnostics to r in the order they were
// added.
func (b *Bag) ReportTo(r Reporter) {
	if r == nil {
		return
	}
	for _, d := range b.Items() {
		r.Report(d)
	}
}

// Find returns the first diagnostic with code.
func (b *Bag) Find(code Code) (Diagnostic, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.items {
		if d.Code == code {
			return d, true
		}
	}
	return Diagnostic{}, false
}
