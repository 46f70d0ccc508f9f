package model

import (
	"time"
)

// Document represents a document sent for signature, together with the
// signers it exclusively owns. Deleting a document cascades to its signers.
type Document struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	Title         string    `json:"title"`
	SourceURL     string    `json:"source_url"`
	Status        string    `json:"status"` // draft, pending, signed, cancelled, error
	ExternalToken string    `json:"external_token,omitempty"`
	OpenID        string    `json:"open_id,omitempty"`
	Signers       []*Signer `json:"signers"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Document status constants
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusSigned    = "signed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// IsTerminal reports whether the document status is a sink state.
func (d *Document) IsTerminal() bool {
	return d.Status == StatusSigned || d.Status == StatusCancelled || d.Status == StatusError
}

// SignerByID returns the signer with the given ID, or nil.
func (d *Document) SignerByID(id string) *Signer {
	for _, s := range d.Signers {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AllSignersSigned reports whether every signer has signed. A document
// without signers is never considered fully signed.
func (d *Document) AllSignersSigned() bool {
	if len(d.Signers) == 0 {
		return false
	}
	for _, s := range d.Signers {
		if s.Status != SignerStatusSigned {
			return false
		}
	}
	return true
}

// AnySignerDeclined reports whether at least one signer declined.
func (d *Document) AnySignerDeclined() bool {
	for _, s := range d.Signers {
		if s.Status == SignerStatusDeclined {
			return true
		}
	}
	return false
}

// Signer represents a party that must sign a document.
type Signer struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"document_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Status        string     `json:"status"` // pending, signed, declined
	ExternalToken string     `json:"external_token,omitempty"`
	SignedAt      *time.Time `json:"signed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Signer status constants
const (
	SignerStatusPending  = "pending"
	SignerStatusSigned   = "signed"
	SignerStatusDeclined = "declined"
)
