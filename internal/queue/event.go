// Package queue defines message payloads exchanged over the message broker.
package queue

// Benefit event kinds.
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
	EventFamilyLinked  = "family_linked"
	EventDeleted       = "deleted"
)

// BenefitEvent is published after every successful mutation of a takaful
// benefit.  It carries enough for the audit consumer to write a line
// without querying the database.
type BenefitEvent struct {
	Kind         string `json:"kind"`
	BenefitID    string `json:"benefit_id"`
	BenefitCode  string `json:"benefit_code"`
	ProviderType string `json:"provider_type"`
	ProviderID   string `json:"provider_id"`
	FamilyID     string `json:"family_id,omitempty"`
	FromStatus   string `json:"from_status,omitempty"`
	ToStatus     string `json:"to_status,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	ActorID      string `json:"actor_id"`
	OccurredAt   string `json:"occurred_at"`
}
