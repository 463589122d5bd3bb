package workflow

import (
	"context"

	"github.com/pkg/errors"
)

// ErrCancelled is returned when the operator aborts the export. It is
// reported silently.
var ErrCancelled = errors.New("export cancelled")

// ErrBuildFailed is returned when the pre-flight build does not succeed.
// The build already printed its own output, so it is reported silently.
var ErrBuildFailed = errors.New("workspace build failed")

// Remediation is an action offered to the operator alongside an error,
// e.g. opening the file that needs fixing.
type Remediation struct {
	Label string
	Run   func(ctx context.Context) error
}

// ResolutionError means the export could not determine what to package:
// no workspace, no projects, no classpath, or no selected elements.
type ResolutionError struct {
	Message     string
	Remediation *Remediation
	Cause       error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// GenerationError means the archive backend failed.
type GenerationError struct {
	Message     string
	Remediation *Remediation
	Cause       error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// RemediationOf returns the remediation attached to err, if any.
func RemediationOf(err error) *Remediation {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Remediation
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Remediation
	}
	return nil
}

// IsSilent reports whether err ends the export without a message.
func IsSilent(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrBuildFailed)
}
