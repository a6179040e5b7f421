package domain

import "context"

// SnapshotSource delivers one consistent price map per tick. On failure
// it returns a *FeedError and the caller skips the whole tick.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// EventPublisher pushes a match event to an owner's live session.
// Best-effort, at-most-once: ErrNoChannel means the owner is not
// connected and the event is simply dropped.
type EventPublisher interface {
	Publish(owner string, ev *MatchEvent) error
}

// RuleReader is the point-in-time view the matching engine evaluates.
type RuleReader interface {
	ListActiveRules(ctx context.Context) ([]Rule, error)
}

// TransitionApplier commits a band-state flip together with its holding
// mutation as one atomic unit. It reports false when the transition was
// already applied (compare-and-set miss), which is not an error.
type TransitionApplier interface {
	ApplyTransition(ctx context.Context, ev *MatchEvent, from, to BandState) (bool, error)
}
