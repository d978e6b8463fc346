package engine

import "fmt"

// ErrorKind classifies a cycle failure. The outer loop chooses retry
// behavior from the kind, never from error text.
type ErrorKind int

const (
	// KindDataUnavailable marks a failed or empty candle fetch. The loop
	// retries after the short retry delay without touching the failure
	// budget.
	KindDataUnavailable ErrorKind = iota

	// KindOrderSubmissionFailed marks an order the exchange rejected or
	// timed out. Data acquisition succeeded, so the loop continues at the
	// normal interval.
	KindOrderSubmissionFailed

	// KindUnexpected marks anything else. Consecutive unexpected failures
	// are counted and terminate the process past the configured budget.
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindDataUnavailable:
		return "data_unavailable"
	case KindOrderSubmissionFailed:
		return "order_failed"
	default:
		return "error"
	}
}

// CycleError is a classified failure of one analysis cycle.
type CycleError struct {
	Kind ErrorKind
	Err  error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

func dataUnavailable(err error) *CycleError {
	return &CycleError{Kind: KindDataUnavailable, Err: err}
}

func orderFailed(err error) *CycleError {
	return &CycleError{Kind: KindOrderSubmissionFailed, Err: err}
}

func unexpected(err error) *CycleError {
	return &CycleError{Kind: KindUnexpected, Err: err}
}
