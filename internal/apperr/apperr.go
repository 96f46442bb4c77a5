// Package apperr defines the error taxonomy shared by the engine, the
// command layer and the CLI.
package apperr

import (
	"errors"
	"fmt"
)

// Type is the category of an error
type Type string

const (
	TypeValidation Type = "VALIDATION"
	TypeConfig     Type = "CONFIG"
	TypeGitHub     Type = "GITHUB"
	TypeAnalysis   Type = "ANALYSIS"
	TypeNotify     Type = "NOTIFY"
	TypeInternal   Type = "INTERNAL"
)

// Error is a typed application error
type Error struct {
	Type       Type
	Message    string
	Context    map[string]any
	Err        error
	Suggestion string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same type and message so derived errors still
// compare equal to the sentinel they were built from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError returns a copy of e wrapping err
func (e *Error) WithError(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// WithContext returns a copy of e with an extra context value
func (e *Error) WithContext(key string, value any) *Error {
	c := *e
	c.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		c.Context[k] = v
	}
	c.Context[key] = value
	return &c
}

// WithSuggestion returns a copy of e with a hint for the user
func (e *Error) WithSuggestion(suggestion string) *Error {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// New creates an Error
func New(t Type, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// IsType reports whether err is an *Error of type t
func IsType(err error, t Type) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// Suggestion returns the user hint carried by err, if any
func Suggestion(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Suggestion
	}
	return ""
}

// Validation errors
var (
	ErrTokenMissing = New(TypeValidation, "GITHUB_TOKEN environment variable is required", nil).
			WithSuggestion("Export a personal access token: export GITHUB_TOKEN=<token>")

	ErrInvalidRepositoryURL = New(TypeValidation, "Invalid GitHub repository URL", nil).
				WithSuggestion("Use the form https://github.com/<owner>/<repo>")

	ErrMissingFlag = New(TypeValidation, "required option missing", nil)
)

// Config errors
var (
	ErrConfigRead  = New(TypeConfig, "failed to read config file", nil)
	ErrConfigParse = New(TypeConfig, "failed to parse config file", nil).
			WithSuggestion("Check the file is valid TOML")
)

// GitHub errors. The messages contain the phrases the batch executor treats
// as critical, keep them stable.
var (
	ErrRateLimited = New(TypeGitHub, "GitHub API rate limit exceeded", nil).
			WithSuggestion("Wait for the rate limit window to reset and retry")

	ErrAuthentication = New(TypeGitHub, "authentication failed", nil).
				WithSuggestion("Verify GITHUB_TOKEN is valid and not expired")

	ErrPermissions = New(TypeGitHub, "insufficient permissions", nil).
			WithSuggestion("The token needs repo, project and write:org scopes")

	ErrProjectNotFound = New(TypeGitHub, "project not found", nil)

	ErrNotFound = New(TypeGitHub, "resource not found", nil)

	ErrRequest = New(TypeGitHub, "request failed", nil)
)

// Analysis errors
var (
	ErrStrategyNotImplemented = New(TypeAnalysis, "Analysis strategy not implemented", nil)
	ErrAnalysisIncomplete     = New(TypeAnalysis, "Project analysis not completed", nil)
)

// Notification errors
var (
	ErrNotifyStatus = New(TypeNotify, "notification endpoint returned non-success status", nil)
)
