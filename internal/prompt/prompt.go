// Package prompt is the operator-facing selection surface of the export
// workflow: multi-select, single-select, save-location and confirmation
// prompts.
//
// Terminal renders them as bubbletea programs; Auto answers them without
// an operator for scripted runs.
package prompt

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Action is how the operator left a prompt.
type Action int

const (
	// ActionAccept means the operator confirmed the prompt.
	ActionAccept Action = iota

	// ActionBack means the operator asked to return to the previous step.
	ActionBack

	// ActionCancel means the operator dismissed the prompt.
	ActionCancel
)

// String satisfies fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionBack:
		return "back"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Option is one entry of a select prompt.
type Option struct {
	Label       string
	Description string

	// Checked pre-checks the option in a multi-select.
	Checked bool
}

// MultiSelectRequest configures a multi-select prompt.
type MultiSelectRequest struct {
	Title   string
	Options []Option

	// AllowBack enables the "go back" key.
	AllowBack bool
}

// SingleSelectRequest configures a single-select prompt.
type SingleSelectRequest struct {
	Title     string
	Options   []Option
	AllowBack bool
}

// Selection is the outcome of a select prompt.
type Selection struct {
	Action Action

	// Indices are the chosen option indices in option order. A single-select
	// yields exactly one index on accept.
	Indices []int
}

// SaveRequest configures a save-location prompt.
type SaveRequest struct {
	Title string

	// DefaultPath is proposed to the operator.
	DefaultPath string

	// Extension is appended to the answer when it is missing, e.g. ".jar".
	Extension string
}

// ConfirmRequest configures a yes/no prompt.
type ConfirmRequest struct {
	Title   string
	Default bool
}

// Prompter is the selection surface the workflow stages use.
type Prompter interface {
	MultiSelect(ctx context.Context, req MultiSelectRequest) (Selection, error)
	SingleSelect(ctx context.Context, req SingleSelectRequest) (Selection, error)
	SaveLocation(ctx context.Context, req SaveRequest) (string, Action, error)
}

// Confirmer asks yes/no questions.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ErrAmbiguous is returned by Auto when a single-select has more than one
// candidate and no operator is available to choose.
var ErrAmbiguous = errors.New("more than one option and no operator to choose")

// ErrNoOptions is returned when a select prompt has nothing to offer.
var ErrNoOptions = errors.New("no options to choose from")

// EnsureExt returns path with ext appended unless it already ends with it
// (case-insensitively). The result is made absolute.
func EnsureExt(path, ext string) (string, error) {
	path = strings.TrimSpace(path)
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		path += ext
	}
	return filepath.Abs(path)
}

// checkedIndices returns the indices of pre-checked options.
func checkedIndices(opts []Option) []int {
	var idx []int
	for i, o := range opts {
		if o.Checked {
			idx = append(idx, i)
		}
	}
	return idx
}
