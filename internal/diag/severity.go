package diag

import "github.com/fatih/color"

// Severity ranks a diagnostic. Only SevWarning and SevError are shown under
// --quiet.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityColors = map[Severity]*color.Color{
	SevInfo:    color.New(color.FgCyan, color.Bold),
	SevWarning: color.New(color.FgYellow, color.Bold),
	SevError:   color.New(color.FgRed, color.Bold),
}

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label returns the printed prefix, "Info:", "Warning:" or "Error:", coloured
// unless color.NoColor is set.
func (s Severity) Label() string {
	var text string
	switch s {
	case SevWarning:
		text = "Warning:"
	case SevError:
		text = "Error:"
	default:
		text = "Info:"
	}
	if c, ok := severityColors[s]; ok {
		return c.Sprint(text)
	}
	return text
}
