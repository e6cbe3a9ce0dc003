package pipeline

import "errors"

// Sentinel errors surfaced by Converse, named after the error kinds in
// spec §7.
var (
	ErrSessionNotFound = errors.New("pipeline: session_not_found")
	ErrUpstreamLLM     = errors.New("pipeline: upstream_llm")
	ErrTurnInProgress  = errors.New("pipeline: turn_in_progress")
)

// StageError wraps a failure with the pipeline stage that produced it, in
// the style of the teacher's own provider/tts error types.
type StageError struct {
	Stage string
	Cause error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return "pipeline: " + e.Stage + ": " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Cause
}
