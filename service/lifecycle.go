package service

import (
	"time"

	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// Document lifecycle state machine. These functions are the only place
// where Document.Status and Signer.Status change. Callers hold the
// document's lock around every call plus the following save.
//
//	draft    --send-->                pending
//	pending  --all signers signed-->  signed
//	pending  --any signer declined--> cancelled
//	pending  --provider cancelled-->  cancelled
//	pending  --completed-->           signed (cancelled when a signer declined)
//	non-terminal --send failure-->    error
//
// signed, cancelled and error are sink states. Every other (state, event)
// pair is rejected with invalid_state_transition and the aggregate is
// left untouched.

// MarkSent applies the draft -> pending transition after a successful
// dispatch to the signature provider. Requires at least one signer.
func MarkSent(doc *model.Document, externalToken, openID string) error {
	if doc.Status != model.StatusDraft {
		return model.Errorf(model.KindInvalidStateTransition,
			"cannot send document in status %s", doc.Status)
	}
	if len(doc.Signers) == 0 {
		return model.Errorf(model.KindInvalidStateTransition,
			"cannot send document without signers")
	}

	doc.Status = model.StatusPending
	doc.ExternalToken = externalToken
	doc.OpenID = openID
	return nil
}

// MarkSendFailed moves a non-terminal document to the terminal error
// state after an irrecoverable provider failure during send.
func MarkSendFailed(doc *model.Document) error {
	if doc.IsTerminal() {
		return model.Errorf(model.KindInvalidStateTransition,
			"document already in terminal status %s", doc.Status)
	}
	doc.Status = model.StatusError
	return nil
}

// ApplyEvent applies a provider signature event to the aggregate. Signer
// statuses update unconditionally on signer-level events; the document
// only rolls forward when the aggregate condition holds afterwards.
func ApplyEvent(doc *model.Document, ev *model.SignatureEvent) error {
	if doc.Status != model.StatusPending {
		return model.Errorf(model.KindInvalidStateTransition,
			"event %s not allowed in status %s", ev.Type, doc.Status)
	}

	switch ev.Type {
	case model.EventSigned:
		if ev.SignerID == "" {
			// Document-level signed notification behaves like completion.
			return applyCompleted(doc)
		}
		signer := doc.SignerByID(ev.SignerID)
		if signer == nil {
			return model.Errorf(model.KindInvalidStateTransition,
				"signer %s not part of document %s", ev.SignerID, doc.ID)
		}
		signedAt := ev.OccurredAt
		if signedAt.IsZero() {
			signedAt = time.Now()
		}
		signer.Status = model.SignerStatusSigned
		signer.SignedAt = &signedAt
		signer.UpdatedAt = time.Now()
		if doc.AllSignersSigned() {
			doc.Status = model.StatusSigned
		}
		return nil

	case model.EventDeclined:
		if ev.SignerID != "" {
			signer := doc.SignerByID(ev.SignerID)
			if signer == nil {
				return model.Errorf(model.KindInvalidStateTransition,
					"signer %s not part of document %s", ev.SignerID, doc.ID)
			}
			signer.Status = model.SignerStatusDeclined
			signer.UpdatedAt = time.Now()
		}
		doc.Status = model.StatusCancelled
		return nil

	case model.EventCancelled:
		doc.Status = model.StatusCancelled
		return nil

	case model.EventCompleted:
		return applyCompleted(doc)

	default:
		return model.Errorf(model.KindUnknownEvent, "event type %s", ev.Type)
	}
}

// SyncProviderStatus reconciles a pending document against the
// provider's current view, recovering state lost to missed webhook
// deliveries. Remote signer signatures and the remote document status
// are replayed through the state machine; anything the machine rejects
// is skipped. Returns whether the aggregate changed.
func SyncProviderStatus(doc *model.Document, remote *ProviderDocument) bool {
	changed := false

	for _, rs := range remote.Signers {
		if doc.Status != model.StatusPending {
			break
		}
		if rs.Status != "signed" {
			continue
		}
		signer := doc.SignerByID(rs.ExternalID)
		if signer == nil || signer.Status == model.SignerStatusSigned {
			continue
		}
		if ApplyEvent(doc, &model.SignatureEvent{Type: model.EventSigned, SignerID: rs.ExternalID}) == nil {
			changed = true
		}
	}

	if doc.Status == model.StatusPending {
		var eventType string
		switch remote.Status {
		case "signed", "completed":
			eventType = model.EventCompleted
		case "refused", "declined":
			eventType = model.EventDeclined
		case "cancelled":
			eventType = model.EventCancelled
		}
		if eventType != "" && ApplyEvent(doc, &model.SignatureEvent{Type: eventType}) == nil {
			changed = true
		}
	}

	return changed
}

// applyCompleted resolves a document-level completion: a completion that
// carries a declined signer cancels the document, otherwise it is signed.
func applyCompleted(doc *model.Document) error {
	if doc.AnySignerDeclined() {
		doc.Status = model.StatusCancelled
		return nil
	}
	doc.Status = model.StatusSigned
	return nil
}
