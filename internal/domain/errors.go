package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ValidationError represents a bad rule or holding field. It is rejected
// synchronously and never enters evaluation. Not retriable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) IsRetriable() bool {
	return false
}

// FeedError represents a price feed failure. The current tick is
// skipped without touching any band state; the next interval retries.
type FeedError struct {
	Op  string // Operation that failed (e.g., "fetch")
	Err error  // Underlying error
}

func (e *FeedError) Error() string {
	return "feed " + e.Op + ": " + e.Err.Error()
}

func (e *FeedError) IsRetriable() bool {
	return true
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// StoreError represents a registry or holdings store failure. The
// current rule's processing aborts with its band state unchanged, so
// the same edge is detected again on the next tick.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) IsRetriable() bool {
	return true
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

var (
	// ErrRuleNotFound is returned when a rule id does not exist or belongs to another owner.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInstrumentNotFound is returned when a symbol is unknown to the feed.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrFeedUnavailable is the base cause for skipped ticks.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrNoChannel is returned when an owner has no live push channel.
	// Delivery is best-effort, so callers drop the event and move on.
	ErrNoChannel = errors.New("no live channel for owner")
)
