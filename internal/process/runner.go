package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// secretMask replaces secrets in printed command lines.
const secretMask = "****"

// Command describes one external tool invocation.
type Command struct {
	// Name is the executable, resolved through PATH.
	Name string
	// Args are passed verbatim; no shell is involved.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Secrets are masked by String.
	Secrets []string
}

// NewCommand splits an argv prefix from configuration and appends args.
func NewCommand(argv []string, args ...string) Command {
	if len(argv) == 0 {
		return Command{Args: args}
	}

	all := make([]string, 0, len(argv)-1+len(args))
	all = append(all, argv[1:]...)
	all = append(all, args...)

	return Command{Name: argv[0], Args: all}
}

// String renders the command line with secrets masked, for logs and status.
func (c Command) String() string {
	line := strings.Join(append([]string{c.Name}, c.Args...), " ")

	for _, secret := range c.Secrets {
		if secret != "" {
			line = strings.ReplaceAll(line, secret, secretMask)
		}
	}

	return line
}

// Result is the outcome of a finished process.
type Result struct {
	// ExitCode is the process exit status.
	ExitCode int
	// Output is combined stdout and stderr.
	Output string
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Runner executes commands. The error is reserved for processes that could
// not be started or were interrupted; a non-zero exit is reported in Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ErrEmptyCommand is returned for a Command without an executable.
var ErrEmptyCommand = errors.New("command has no executable")

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd, waits for it and captures its combined output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, ErrEmptyCommand
	}

	//nolint:gosec // Tool argv comes from the operator's own settings file.
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir

	var output bytes.Buffer

	execCmd.Stdout = &output
	execCmd.Stderr = &output

	err := execCmd.Run()
	if err == nil {
		return &Result{Output: output.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return &Result{ExitCode: exitErr.ExitCode(), Output: output.String()}, nil
	}

	return &Result{ExitCode: -1, Output: output.String()}, fmt.Errorf("run %s: %w", cmd, err)
}
