package prompt

import (
	"context"
	"fmt"
)

// Auto answers prompts without an operator. It is used with --yes and when
// stdin is not a terminal.
type Auto struct{}

// MultiSelect accepts the pre-checked options.
func (Auto) MultiSelect(ctx context.Context, req MultiSelectRequest) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}
	return Selection{Action: ActionAccept, Indices: checkedIndices(req.Options)}, nil
}

// SingleSelect accepts the only option and refuses to guess otherwise.
func (Auto) SingleSelect(ctx context.Context, req SingleSelectRequest) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}
	switch len(req.Options) {
	case 0:
		return Selection{}, fmt.Errorf("%s: %w", req.Title, ErrNoOptions)
	case 1:
		return Selection{Action: ActionAccept, Indices: []int{0}}, nil
	default:
		return Selection{}, fmt.Errorf("%s: %w (%d candidates)", req.Title, ErrAmbiguous, len(req.Options))
	}
}

// SaveLocation accepts the default path.
func (Auto) SaveLocation(ctx context.Context, req SaveRequest) (string, Action, error) {
	if err := ctx.Err(); err != nil {
		return "", ActionCancel, err
	}
	if req.DefaultPath == "" {
		return "", ActionCancel, fmt.Errorf("%s: no default location", req.Title)
	}
	p, err := EnsureExt(req.DefaultPath, req.Extension)
	if err != nil {
		return "", ActionCancel, err
	}
	return p, ActionAccept, nil
}

// Confirm returns the default answer.
func (Auto) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return req.Default, nil
}
