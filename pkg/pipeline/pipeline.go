// Package pipeline drives one voice command end to end: recognition,
// command matching, validation, an optional confirmation pause, execution,
// and the follow-up bookkeeping (conversation context, audit record,
// spoken feedback). At most one command is in flight per Orchestrator;
// a second Process call while busy is rejected, never queued.
package pipeline

import (
	"errors"

	"github.com/charice-projects/omnivoice/pkg/command"
	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Sentinel errors.
var (
	// ErrBusy is returned by Process while a command is already in flight.
	ErrBusy = errors.New("pipeline: command already in flight")
	// ErrNotConfirming is returned by Confirm outside the Confirming state.
	ErrNotConfirming = errors.New("pipeline: no confirmation pending")
)

// State is the orchestrator's lifecycle position, surfaced to the UI as a
// listening indicator.
type State int

const (
	StateIdle State = iota
	StateRecognizing
	StateProcessing
	StateConfirming
	StateExecuting
	StateCompleted
	StateCancelled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecognizing:
		return "recognizing"
	case StateProcessing:
		return "processing"
	case StateConfirming:
		return "confirming"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Kind discriminates Result variants.
type Kind int

const (
	// KindExecuted carries the executor output of a completed command.
	KindExecuted Kind = iota
	// KindNoMatch means no registered command fit the utterance;
	// Suggestions holds near misses, possibly empty.
	KindNoMatch
	// KindBlocked means the validation gate stopped the command; Reason
	// holds the clarification the user was prompted with.
	KindBlocked
	// KindCancelled means the confirmation was rejected or timed out.
	// The executor was never invoked.
	KindCancelled
	// KindFailed means the executor ran and returned an error.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindExecuted:
		return "executed"
	case KindNoMatch:
		return "no_match"
	case KindBlocked:
		return "blocked"
	case KindCancelled:
		return "cancelled"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the typed outcome of one Process call. Exactly one variant's
// fields are populated, selected by Kind.
type Result struct {
	Kind   Kind
	Intent intent.Intent

	// Command is the matched command. Nil for KindNoMatch.
	Command *command.Command

	// Output is the executor's result string (KindExecuted).
	Output string

	// Suggestions are near-miss commands (KindNoMatch).
	Suggestions []command.Suggestion

	// Reason explains KindBlocked and KindCancelled.
	Reason string

	// Err and Retryable describe KindFailed.
	Err       error
	Retryable bool
}
