// internal/events/types.go
package events

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event.
type EventType string

const (
	// Any subscribes to every event type.
	Any EventType = "*"

	// Workflow events
	WorkflowStarted   EventType = "workflow.started"
	WorkflowCompleted EventType = "workflow.completed"
	WorkflowFailed    EventType = "workflow.failed"

	// Step events
	StepPending   EventType = "step.pending"
	StepSubmitted EventType = "step.submitted"
	StepConfirmed EventType = "step.confirmed"
	StepFailed    EventType = "step.failed"

	// Quote events
	QuoteUpdated EventType = "quote.updated"

	// Free-form progress and warnings
	Progress EventType = "progress"
	Warning  EventType = "warning"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	// Status is the one-line human rendering used by the status stream.
	Status() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	SessionID string
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func newBase(t EventType, session string) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now(), SessionID: session}
}

// WorkflowEvent brackets a whole pipeline run.
type WorkflowEvent struct {
	BaseEvent
	Workflow string
	Steps    int
	Err      error
}

func NewWorkflowEvent(t EventType, session, workflow string, steps int, err error) *WorkflowEvent {
	return &WorkflowEvent{BaseEvent: newBase(t, session), Workflow: workflow, Steps: steps, Err: err}
}

func (e *WorkflowEvent) Status() string {
	switch e.EventType {
	case WorkflowStarted:
		return fmt.Sprintf("%s: starting (%d steps)", e.Workflow, e.Steps)
	case WorkflowCompleted:
		return fmt.Sprintf("%s: completed", e.Workflow)
	default:
		return fmt.Sprintf("%s: failed: %v", e.Workflow, e.Err)
	}
}

// StepEvent reports one step transition.
type StepEvent struct {
	BaseEvent
	Index  int
	Total  int
	Step   string
	Method string
	TxHash common.Hash
	Err    error
}

func NewStepEvent(t EventType, session string, index, total int, step, method string) *StepEvent {
	return &StepEvent{BaseEvent: newBase(t, session), Index: index, Total: total, Step: step, Method: method}
}

func (e *StepEvent) Status() string {
	prefix := fmt.Sprintf("[%d/%d] %s", e.Index+1, e.Total, e.Step)
	switch e.EventType {
	case StepPending:
		return prefix + ": awaiting signature"
	case StepSubmitted:
		return fmt.Sprintf("%s: submitted %s, waiting for confirmation", prefix, e.TxHash.Hex())
	case StepConfirmed:
		return fmt.Sprintf("%s: confirmed %s", prefix, e.TxHash.Hex())
	default:
		return fmt.Sprintf("%s: failed: %v", prefix, e.Err)
	}
}

// QuoteEvent carries a freshly accepted quote rendering.
type QuoteEvent struct {
	BaseEvent
	Path string
	In   string
	Out  string
}

func NewQuoteEvent(session, path, in, out string) *QuoteEvent {
	return &QuoteEvent{BaseEvent: newBase(QuoteUpdated, session), Path: path, In: in, Out: out}
}

func (e *QuoteEvent) Status() string {
	return fmt.Sprintf("quote %s: %s -> %s", e.Path, e.In, e.Out)
}

// MessageEvent is a progress line or a non-fatal warning.
type MessageEvent struct {
	BaseEvent
	Message string
}

func NewProgress(session, format string, args ...interface{}) *MessageEvent {
	return &MessageEvent{BaseEvent: newBase(Progress, session), Message: fmt.Sprintf(format, args...)}
}

func NewWarning(session, format string, args ...interface{}) *MessageEvent {
	return &MessageEvent{BaseEvent: newBase(Warning, session), Message: fmt.Sprintf(format, args...)}
}

func (e *MessageEvent) Status() string {
	if e.EventType == Warning {
		return "warning: " + e.Message
	}
	return e.Message
}
