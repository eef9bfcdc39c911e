// Package runner isolates external process invocation behind a narrow
// interface so callers can be tested with a fake.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single invocation when the caller does not set one.
const DefaultTimeout = 30 * time.Second

// Command is a single process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current environment.
	Env   []string
	Stdin []byte
}

// Result is what a finished (or killed) process produced.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
	Timeout  time.Duration
}

// Output joins stderr and stdout, which is how apply tools split their diagnostics.
func (r Result) Output() string {
	switch {
	case len(r.Stderr) == 0:
		return string(r.Stdout)
	case len(r.Stdout) == 0:
		return string(r.Stderr)
	}
	return string(r.Stderr) + "\n" + string(r.Stdout)
}

// Runner runs a command and reports its exit status and streams.
// A non-zero exit is not an error; err is reserved for failures to start.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a runner that kills each process after timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout}
}

// Run executes cmd. Stdin is empty unless cmd.Stdin is set, so a tool that
// prompts for input sees EOF instead of blocking.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}
	c.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Timeout: timeout,
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("running %s: %w", cmd.Name, err)
	}
}
