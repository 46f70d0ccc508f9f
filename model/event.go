package model

import (
	"time"
)

// Signature event types
const (
	EventSigned    = "signed"
	EventDeclined  = "declined"
	EventCancelled = "cancelled"
	EventCompleted = "completed"
)

// SignatureEvent is a canonical signature lifecycle notification from the
// external provider. ID is provider-assigned and used for deduplication.
// An empty SignerID means the event is document-level.
type SignatureEvent struct {
	ID            string    `json:"event_id"`
	DocumentToken string    `json:"document_token"`
	SignerID      string    `json:"signer_id,omitempty"`
	Type          string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
}
