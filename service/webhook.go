package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/pkg/logger"
)

// WebhookDispatcher authenticates inbound provider callbacks, translates
// them into canonical signature events and forwards them to the document
// state machine under the document's lock.
type WebhookDispatcher struct {
	store  *DocumentStore
	secret string
}

func NewWebhookDispatcher(store *DocumentStore, secret string) *WebhookDispatcher {
	return &WebhookDispatcher{store: store, secret: secret}
}

type webhookPayload struct {
	EventID       string `json:"event_id"`
	DocumentToken string `json:"document_token"`
	SignerID      string `json:"signer_id"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
}

// eventTypeAliases maps provider-native event names onto the canonical
// types, alongside the canonical names themselves.
var eventTypeAliases = map[string]string{
	model.EventSigned:    model.EventSigned,
	model.EventDeclined:  model.EventDeclined,
	model.EventCancelled: model.EventCancelled,
	model.EventCompleted: model.EventCompleted,
	"signer_signed":      model.EventSigned,
	"doc_signed":         model.EventCompleted,
	"doc_refused":        model.EventDeclined,
	"doc_cancelled":      model.EventCancelled,
}

// Handle processes one raw webhook delivery. A nil return means the
// delivery is acknowledged; this includes duplicate events and state
// conflicts the provider cannot resolve. Classified errors are returned
// for unauthorized payloads, unknown event shapes and unknown documents.
func (d *WebhookDispatcher) Handle(ctx context.Context, raw []byte, signature string) error {
	if !d.verifySignature(raw, signature) {
		return model.Errorf(model.KindUnauthorizedWebhook, "webhook signature mismatch")
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return model.Errorf(model.KindUnknownEvent, "malformed webhook payload: %v", err)
	}
	if payload.EventID == "" || payload.DocumentToken == "" {
		return model.Errorf(model.KindUnknownEvent, "webhook payload missing event_id or document_token")
	}

	eventType, ok := eventTypeAliases[payload.EventType]
	if !ok {
		webhookEventsTotal.WithLabelValues(payload.EventType, "unknown").Inc()
		return model.Errorf(model.KindUnknownEvent, "unmodeled event type %s", payload.EventType)
	}

	doc := d.store.GetByToken(payload.DocumentToken)
	if doc == nil {
		webhookEventsTotal.WithLabelValues(eventType, "document_not_found").Inc()
		return model.Errorf(model.KindDocumentNotFound,
			"no document for token %s", payload.DocumentToken)
	}

	event := &model.SignatureEvent{
		ID:            payload.EventID,
		DocumentToken: payload.DocumentToken,
		SignerID:      payload.SignerID,
		Type:          eventType,
		OccurredAt:    parseEventTime(payload.OccurredAt),
	}

	unlock := d.store.LockDocument(doc.ID)
	defer unlock()

	// Re-resolve inside the critical section: a concurrent delete may
	// have removed the document while this delivery waited on the lock.
	doc = d.store.GetByToken(payload.DocumentToken)
	if doc == nil {
		webhookEventsTotal.WithLabelValues(eventType, "document_not_found").Inc()
		return model.Errorf(model.KindDocumentNotFound,
			"no document for token %s", payload.DocumentToken)
	}

	// Dedup check and apply share the critical section: two concurrent
	// deliveries of one event id cannot both pass the check.
	if d.store.EventApplied(doc.ID, event.ID) {
		logger.Info(ctx, "duplicate webhook event ignored",
			"document_id", doc.ID,
			"event_id", event.ID,
		)
		webhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return nil
	}

	if err := ApplyEvent(doc, event); err != nil {
		// The provider already delivered this event; rejecting would
		// only trigger retries for a conflict it cannot resolve.
		logger.Warn(ctx, "webhook event rejected by state machine",
			"document_id", doc.ID,
			"event_id", event.ID,
			"event_type", event.Type,
			"status", doc.Status,
			"error", err.Error(),
		)
		webhookEventsTotal.WithLabelValues(eventType, "rejected").Inc()
		return nil
	}

	d.store.MarkEventApplied(doc.ID, event.ID)
	d.store.SaveDocument(doc)

	webhookEventsTotal.WithLabelValues(eventType, "applied").Inc()
	logger.Info(ctx, "webhook event applied",
		"document_id", doc.ID,
		"event_id", event.ID,
		"event_type", event.Type,
		"status", doc.Status,
	)
	return nil
}

func (d *WebhookDispatcher) verifySignature(raw []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(d.secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ComputeSignature returns the hex HMAC-SHA256 of a payload. Exposed for
// callers that need to sign outbound test deliveries.
func ComputeSignature(secret string, raw []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseEventTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
