// Package command wraps GitHub mutations as commands and runs them through
// an invoker with batching, retries and undo history.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Type tags a command
type Type string

const (
	TypeCreateProject Type = "create_project"
	TypeCreateIssues  Type = "create_issues"
	TypeSetupSprint   Type = "setup_sprint"
	TypeUpdateBoard   Type = "update_board"
)

// Command is a reified operation
type Command interface {
	Execute(ctx context.Context) Result
	Description() string
	Type() Type
	Metadata() map[string]any
}

// Reverter is implemented by commands whose effect can be reversed
type Reverter interface {
	Undo(ctx context.Context) Result
}

// CanUndo reports whether c can be reversed
func CanUndo(c Command) bool {
	_, ok := c.(Reverter)
	return ok
}

// Undo reverses c, or fails if c does not support it
func Undo(ctx context.Context, c Command) Result {
	if r, ok := c.(Reverter); ok {
		return r.Undo(ctx)
	}
	return Failed(fmt.Errorf("%s: operation cannot be undone", c.Description()))
}

// Result is the outcome of running a command. Failures are values; no
// command lets an error escape as a panic.
type Result struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	Err        error     `json:"-"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Succeeded builds a success result
func Succeeded(data any) Result {
	return Result{Success: true, Data: data, ExecutedAt: time.Now()}
}

// Failed builds a failure result
func Failed(err error) Result {
	return FailedWith(err, nil)
}

// FailedWith builds a failure result that still carries partial data
func FailedWith(err error, data any) Result {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Result{Success: false, Data: data, Error: err.Error(), Err: err, ExecutedAt: time.Now()}
}
