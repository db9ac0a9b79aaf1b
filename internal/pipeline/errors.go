// internal/pipeline/errors.go
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/launchpad/internal/types"
)

var (
	ErrAlreadyRunning = errors.New("pipeline is already running")
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrNotResumable   = errors.New("pipeline cannot resume from this step")
)

// Phase is where inside a step the failure happened.
type Phase string

const (
	// PhaseBuild covers cancellation and parameter derivation; nothing was sent.
	PhaseBuild Phase = "build"
	// PhaseSubmit means the signer rejected or could not broadcast the call.
	PhaseSubmit Phase = "submit"
	// PhaseConfirm means the call was sent but reverted or its wait ended.
	PhaseConfirm Phase = "confirm"
	// PhaseFinalize means the step committed but its follow-up read failed.
	PhaseFinalize Phase = "finalize"
)

// StepError reports a halted pipeline: the failing step and every step that
// is already irreversibly committed.
type StepError struct {
	Index     int
	Step      string
	Phase     Phase
	Committed []StepRecord
	Err       error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d (%s) failed at %s: %v", e.Index+1, e.Step, e.Phase, e.Err)
	if len(e.Committed) > 0 {
		names := make([]string, len(e.Committed))
		for i, r := range e.Committed {
			names[i] = fmt.Sprintf("%s %s", r.Name, r.TxHash.Hex())
		}
		fmt.Fprintf(&b, "; already committed: %s", strings.Join(names, ", "))
	}
	return b.String()
}

// Unwrap exposes the cause and, for failures of an external call, also
// types.ErrExternalCallFailed.
func (e *StepError) Unwrap() []error {
	if e.Phase == PhaseBuild {
		return []error{e.Err}
	}
	return []error{types.ErrExternalCallFailed, e.Err}
}

// Sent reports whether the failing step reached the signer.
func (e *StepError) Sent() bool {
	return e.Phase == PhaseConfirm || e.Phase == PhaseFinalize
}
