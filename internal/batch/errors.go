package batch

import (
	"context"
	"errors"
	"fmt"

	"shard-markdown/internal/chunker"
)

var (
	// ErrInvalidConfiguration is returned before any work when the processor cannot run.
	// It is the same value as chunker.ErrInvalidConfiguration.
	ErrInvalidConfiguration = chunker.ErrInvalidConfiguration
	// ErrNoDocuments is returned when Process is called with no document identifiers.
	ErrNoDocuments = errors.New("no documents to process")
	// ErrAccounting is returned when a batch result does not account for every document.
	ErrAccounting = errors.New("batch accounting mismatch")
	// ErrInvalidTransition is recorded when a task attempts to skip or repeat a stage.
	ErrInvalidTransition = errors.New("invalid stage transition")
	// ErrPanic wraps a recovered panic from a task or collaborator.
	ErrPanic = errors.New("panic")
)

// Per-document failure kinds. A DocumentError matches exactly one of them with errors.Is.
var (
	ErrRead     = errors.New("read error")
	ErrChunking = errors.New("chunking error")
	ErrStorage  = errors.New("storage error")
	ErrTimeout  = errors.New("document timeout")
	ErrCanceled = errors.New("document canceled")
)

// DocumentError describes why one document of a batch failed.
type DocumentError struct {
	DocumentID string
	Stage      Stage // Stage the task was in when it failed
	Kind       error // One of ErrRead, ErrChunking, ErrStorage, ErrTimeout, ErrCanceled
	Err        error // Underlying cause, may be nil
}

func newDocumentError(id string, stage Stage, kind, err error) *DocumentError {
	return &DocumentError{DocumentID: id, Stage: stage, Kind: kind, Err: err}
}

func (e *DocumentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v during %s", e.DocumentID, e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s: %v during %s: %v", e.DocumentID, e.Kind, e.Stage, e.Err)
}

// Unwrap exposes both the failure kind and the underlying cause to errors.Is/As.
func (e *DocumentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps an error raised in a stage to its failure kind.
// A document that never left StagePending was not dispatched and is always canceled.
// Otherwise deadline and cancellation take precedence over the stage's own kind.
func classify(stage Stage, err error) error {
	switch {
	case stage == StagePending:
		return ErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	}

	switch stage {
	case StageReading:
		return ErrRead
	case StageChunking:
		return ErrChunking
	case StageStoring:
		return ErrStorage
	default:
		return ErrCanceled
	}
}
