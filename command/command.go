// Package command runs the consumer under test, feeding its stdin.
package command

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

var (
	// ErrNoCommand is returned when there's no command to execute.
	ErrNoCommand = errors.New("no command to execute")

	// ErrNotStarted is returned when writing to a command that hasn't been started.
	ErrNotStarted = errors.New("command not started")
)

// Options is a set of options to instantiate a Command.
type Options struct {
	// Command is the wrapped command to execute.
	Command []string

	// Stdout and Stderr receive the wrapped command's output.
	// If nil, this process' stdout/stderr are used.
	Stdout io.Writer
	Stderr io.Writer
}

// New instantiates a Command.
func New(opts Options) (*Command, error) {
	if len(opts.Command) == 0 {
		return nil, ErrNoCommand
	}
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = opts.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return &Command{cmd: cmd}, nil
}

// A Command is a wrapped consumer, writes go to its stdin.
type Command struct {
	cmd *exec.Cmd
	w   io.WriteCloser
}

// Start starts the wrapped command.
func (c *Command) Start() error {
	var err error
	if c.w, err = c.cmd.StdinPipe(); err != nil {
		return err
	}
	return c.cmd.Start()
}

// Write writes to the wrapped command's stdin.
func (c *Command) Write(b []byte) (int, error) {
	if c.w == nil {
		return 0, ErrNotStarted
	}
	return c.w.Write(b)
}

// Close closes the wrapped command's stdin.
func (c *Command) Close() error {
	if c.w == nil {
		return ErrNotStarted
	}
	return c.w.Close()
}

// Wait waits for the wrapped command to exit.
func (c *Command) Wait() error {
	return c.cmd.Wait()
}
