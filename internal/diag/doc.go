// Package diag defines the operator-facing diagnostics emitted while
// preparing the native build.
//
// Diagnostics are advisory: they never change the exit status. Fatal
// conditions travel as Go errors instead. Producers emit through a Reporter;
// BagReporter collects for tests and the build record, and Printer renders to
// stderr with colour.
package diag
