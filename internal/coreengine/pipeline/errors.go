package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindInputMissing        Kind = "InputMissing"
	KindTranscriptionFailed Kind = "TranscriptionFailed"
	KindGenerationFailed    Kind = "GenerationFailed"
	KindCaptionFailed       Kind = "CaptionFailed"
	KindStorageFailed       Kind = "StorageFailed"
	KindPersistenceFailed   Kind = "PersistenceFailed"
)

// Error is the failure value every adapter returns. No other error type
// crosses the adapter boundary.
type Error struct {
	Kind  Kind
	Stage State
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s during %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of a pipeline error, or "" for any other error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func inputMissing(stage State, format string, args ...any) *Error {
	return &Error{Kind: KindInputMissing, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func failed(kind Kind, stage State, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
