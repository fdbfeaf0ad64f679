// Package runner executes external tools synchronously and reports how
// they exited. It never interprets a tool's output; callers decide whether
// a failure is fatal.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound means the tool binary is not on PATH.
	ErrNotFound = errors.New("runner: executable not found")

	// ErrTimeout means the tool outlived its deadline and was killed.
	ErrTimeout = errors.New("runner: timed out")
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

// Command is one tool invocation. Stdout and Stderr, when set, receive a
// live copy of the output in addition to the captured buffers.
type Command struct {
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result describes a finished (or unstartable) invocation.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// ExitError is returned when a tool ran but exited non-zero.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Executor runs commands. The pipeline depends on this interface so tests
// can substitute a fake.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Runner is the os/exec backed Executor.
type Runner struct {
	lookPath func(string) (string, error)
}

func New() *Runner {
	return &Runner{lookPath: exec.LookPath}
}

// Run starts cmd, waits for it and returns its exit status. A non-zero
// exit yields *ExitError; an expired ctx deadline yields ErrTimeout.
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	res := Result{Command: cmd.String(), ExitCode: -1}

	path, err := r.lookPath(cmd.Name)
	if err != nil {
		return res, fmt.Errorf("%w: %s", ErrNotFound, cmd.Name)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Stdout = tee(&stdout, cmd.Stdout)
	c.Stderr = tee(&stderr, cmd.Stderr)
	c.WaitDelay = waitDelay

	start := time.Now()
	err = c.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Name, res.Duration.Round(time.Millisecond))
		}
		return res, fmt.Errorf("%s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{Name: cmd.Name, Code: exitErr.ExitCode(), Stderr: res.Stderr}
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", cmd.Name, err)
	}
	return res, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
