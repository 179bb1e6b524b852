// Package queue defines the change-notification messages exchanged over
// the message broker and the background consumer that feeds them to
// connected clients.
package queue

// PatrolChangedEvent is published after every successful patrol write.
// Consumers treat it as an invalidation signal scoped to one owner: they
// re-fetch the affected view rather than applying a delta, since the store
// offers no merge semantics.
type PatrolChangedEvent struct {
	PatrolID   string `json:"patrol_id"`
	OwnerID    uint64 `json:"owner_id"`
	Action     string `json:"action"` // created|statistics|contact|notes|details|closed
	OccurredAt string `json:"occurred_at"`
}
