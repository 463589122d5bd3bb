package workflow

import (
	"fmt"

	"github.com/shinji-kodama/export-jar/internal/model"
)

type transitionKind int

const (
	kindAdvance transitionKind = iota
	kindBack
	kindAbort
)

// Transition is what a stage asks the engine to do next.
type Transition struct {
	kind transitionKind
	step model.ExportStep
}

// Advance moves the pipeline forward to next.
func Advance(next model.ExportStep) Transition {
	return Transition{kind: kindAdvance, step: next}
}

// Back returns to the earlier stage prior, discarding what it and every
// later stage produced.
func Back(prior model.ExportStep) Transition {
	return Transition{kind: kindBack, step: prior}
}

// Abort ends the pipeline because the operator cancelled.
func Abort() Transition {
	return Transition{kind: kindAbort}
}

// Step is the target of an Advance or Back transition.
func (t Transition) Step() model.ExportStep {
	return t.step
}

// IsAbort reports whether t cancels the pipeline.
func (t Transition) IsAbort() bool {
	return t.kind == kindAbort
}

// String satisfies fmt.Stringer.
func (t Transition) String() string {
	switch t.kind {
	case kindAdvance:
		return fmt.Sprintf("advance(%s)", t.step)
	case kindBack:
		return fmt.Sprintf("back(%s)", t.step)
	default:
		return "abort"
	}
}
