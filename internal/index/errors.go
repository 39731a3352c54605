package index

import (
	"errors"
	"fmt"
)

// Build and load error kinds. Build failures never touch a previously
// committed index; load failures are surfaced to retrieval as "index
// unavailable" so the caller can advise rebuilding.
var (
	// ErrEmptyCorpus is returned when the corpus walk finds no eligible files.
	ErrEmptyCorpus = errors.New("no eligible documents in corpus")
	// ErrIndexNotFound is returned when either index artifact is absent.
	ErrIndexNotFound = errors.New("index not found")
	// ErrCorruptIndex is returned when the artifacts disagree or cannot be decoded.
	ErrCorruptIndex = errors.New("index corrupted")
)

// EmbeddingError reports a failed or short embedding call for one document.
// It is distinguishable from every other build failure so operators can tell
// a provider outage from a corpus problem.
type EmbeddingError struct {
	Path string
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for %s: %v", e.Path, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
