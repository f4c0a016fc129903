package diag

// Diagnostic is a single advisory message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Notes    []string
}
