package model

import (
	"time"
)

// Analysis provider constants
const (
	ProviderPrimary   = "primary"
	ProviderSecondary = "secondary"
)

// AnalysisResult is the raw outcome of one provider call.
type AnalysisResult struct {
	Summary       string   `json:"summary"`
	MissingTopics []string `json:"missing_topics"`
	Insights      Insights `json:"insights"`
}

// Insights groups the structured findings of an analysis.
type Insights struct {
	KeyPoints       []string `json:"key_points"`
	Recommendations []string `json:"recommendations"`
	Risks           []string `json:"risks"`
}

// AnalysisRecord is one persisted analysis attempt. Records are append-only:
// repeated analyses of a document form a history, never a rewrite.
// MissingTopics keeps the provider's own ordering.
type AnalysisRecord struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	Provider       string    `json:"provider"` // primary, secondary
	Summary        string    `json:"summary"`
	MissingTopics  []string  `json:"missing_topics"`
	Insights       Insights  `json:"insights"`
	FallbackReason ErrorKind `json:"fallback_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
