package client

import "fmt"

// ErrorKind classifies a query failure for the explorer's error banner.
type ErrorKind string

const (
	// KindPrimaryUnavailable means the DAG snapshot query failed and the
	// fallback reconstruction was attempted.
	KindPrimaryUnavailable ErrorKind = "primary_unavailable"
	// KindFallbackUnavailable means both the snapshot query and the coarse
	// status query failed.
	KindFallbackUnavailable ErrorKind = "fallback_unavailable"
	// KindDetailUnavailable means the per-block detail query failed.
	KindDetailUnavailable ErrorKind = "detail_unavailable"
)

// FetchError wraps a failed node query with its classification.
type FetchError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a classified FetchError
func NewFetchError(kind ErrorKind, op string, err error) *FetchError {
	return &FetchError{Kind: kind, Op: op, Err: err}
}
