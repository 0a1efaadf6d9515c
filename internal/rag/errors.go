package rag

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrValidation        = errors.New("validation error")
	ErrExtraction        = errors.New("extraction error")
	ErrEmbeddingProvider = errors.New("embedding provider error")
	ErrVectorStore       = errors.New("vector store error")
	ErrToolArgument      = errors.New("tool argument error")
	ErrToolExecution     = errors.New("tool execution error")
	ErrModelProvider     = errors.New("model provider error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConfig            = errors.New("configuration error")
)

var kinds = []error{
	ErrValidation, ErrExtraction, ErrEmbeddingProvider, ErrVectorStore,
	ErrToolArgument, ErrToolExecution, ErrModelProvider, ErrUnauthorized, ErrConfig,
}

// kindError attaches a kind to a cause while keeping both reachable via errors.Is.
type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.Error() + ": " + e.msg
	}
	return e.kind.Error() + ": " + e.msg + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// Wrap tags err with kind. A nil err still yields a kind error carrying msg.
func Wrap(kind error, msg string, err error) error {
	return &kindError{kind: kind, msg: msg, err: err}
}

// Errorf builds a kind error without an underlying cause.
func Errorf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// ensureKind wraps err with kind unless it already carries one.
func ensureKind(kind error, msg string, err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return Wrap(kind, msg, err)
}

// IngestError reports how far an ingestion got before it failed.
type IngestError struct {
	Stored int
	Total  int
	Err    error
}

func (e *IngestError) Error() string {
	if e.Stored > 0 {
		return fmt.Sprintf("ingestion partially failed (%d of %d chunks stored): %v", e.Stored, e.Total, e.Err)
	}
	return fmt.Sprintf("ingestion failed: %v", e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// Partial reports whether some chunks were stored before the failure.
func (e *IngestError) Partial() bool {
	return e.Stored > 0
}
