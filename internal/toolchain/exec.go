package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is a single tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Path becomes the subprocess PATH. A nil Path inherits the process PATH.
	Path SearchPath
}

// String renders the command line as printed by --print-commands.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands. The probe and the archive build share one Runner
// so tests can substitute the compiler.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// CommandError carries the tool's stderr verbatim.
type CommandError struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Name, msg)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands as subprocesses and blocks until they exit.
type ExecRunner struct {
	// Stdout receives the tool's standard output; nil discards it.
	Stdout io.Writer
	// Echo, when set, receives each command line before it runs.
	Echo io.Writer
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) error {
	if r.Echo != nil {
		if _, err := fmt.Fprintln(r.Echo, c.String()); err != nil {
			return fmt.Errorf("failed to print command: %w", err)
		}
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Path != nil {
		cmd.Env = c.Path.Environ(os.Environ())
	}
	cmd.Stdout = r.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Name: c.Name, Args: c.Args, Stderr: stderr.String(), Err: err}
	}
	return nil
}
