package service

import (
	"errors"
	"fmt"
	"io/fs"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/storage"
)

var (
	// ErrInvalidInput is returned when a request names nothing that can be processed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a collection is unknown to the manifest.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when the embedder or vector store fails.
	ErrExternalService = errors.New("external service error")
	// ErrInternal is returned when scanning, batch bookkeeping or the manifest fails unexpectedly.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps err with msg. Errors that carry no service kind yet are marked ErrInternal.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if hasKind(err) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrInternal, err)
}

func hasKind(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrInternal)
}

// scanError classifies a scanner failure. Missing paths are the caller's fault.
func scanError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return WrapError(err, "failed to scan paths")
}

// batchError classifies an error returned by the batch processor.
// Per-document failures never reach here; they are part of the result.
func batchError(err error) error {
	if errors.Is(err, batch.ErrNoDocuments) || errors.Is(err, batch.ErrInvalidConfiguration) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return WrapError(err, "failed to process batch")
}

// statsError classifies a failure to compute collection statistics.
func statsError(collection string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: collection %q", ErrNotFound, collection)
	}
	return WrapError(err, "failed to compute collection stats")
}

// queryError classifies a search failure. Queries only touch the embedder and the vector store.
func queryError(err error) error {
	return fmt.Errorf("%w: %w", ErrExternalService, err)
}
