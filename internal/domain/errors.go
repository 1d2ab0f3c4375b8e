package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing component boundaries.
type ErrorKind string

const (
	// KindNetwork: a provider could not be reached.
	KindNetwork ErrorKind = "network_failure"
	// KindNotFound: the provider responded but no matching title exists.
	KindNotFound ErrorKind = "not_found"
	// KindQuota: the provider rejected the call due to rate limiting.
	KindQuota ErrorKind = "quota_exceeded"
	// KindIndex: the vector store is unreadable or uninitialized.
	KindIndex ErrorKind = "index_unavailable"
	// KindPlanning: the language model could not produce a valid tool plan.
	KindPlanning ErrorKind = "planning_failure"
	// KindComposition: the language model was unavailable at the final step.
	KindComposition ErrorKind = "composition_failure"
)

// ProviderError is a tagged error carrying the failure kind, the
// provider (or component) that produced it, and a human-readable
// message. Adapters never surface unhandled faults; every failure is
// wrapped into one of these.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a tagged error.
func NewProviderError(kind ErrorKind, provider, message string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message, Err: err}
}

// KindOf extracts the error kind from err, walking the wrap chain.
// Unclassified errors report KindNetwork, the most conservative guess
// for an adapter failure.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNetwork
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindNotFound
}
