package application

import (
	"errors"
	"fmt"

	"swapwatch/internal/domain"
)

var (
	// ErrMissingInput signals that an input is not known yet. Callers treat it
	// as "not ready" rather than a failure.
	ErrMissingInput        = errors.New("input not ready")
	ErrEmptyResult         = errors.New("record not yet indexed")
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")
	ErrTransportFailure    = errors.New("index transport failure")
)

// OutcomeKind tags the result of one index query.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeTransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the classified result of a single query. Payload is set only
// for OutcomeSuccess and Err only for the other kinds.
type Outcome[T any] struct {
	Kind    OutcomeKind
	Payload T
	Err     error
}

func Success[T any](payload T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSuccess, Payload: payload}
}

func Empty[T any]() Outcome[T] {
	return Outcome[T]{Kind: OutcomeEmpty, Err: ErrEmptyResult}
}

func TransportFailure[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeTransportFailure, Err: err}
}

// TransportError wraps a network, HTTP or GraphQL level failure.
type TransportError struct {
	Request domain.QueryRequest
	Err     error
}

func (e *TransportError) Error() string {
	if e.Request.Key != "" {
		return fmt.Sprintf("%s query %q: %v", e.Request.Kind, e.Request.Key, e.Err)
	}
	return fmt.Sprintf("%s query: %v", e.Request.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransportFailure, e.Err}
}

// TransactionsPayload is the data returned by a transaction lookup.
type TransactionsPayload struct {
	Transactions []domain.IndexedTransaction
}

// TokensPayload is the data returned by a token listing.
type TokensPayload struct {
	Tokens []domain.Token
}
