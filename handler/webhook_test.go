package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/service"
)

const webhookSecret = "test-secret"

func webhookRouter(store *service.DocumentStore) *gin.Engine {
	handler := NewWebhookHandler(service.NewWebhookDispatcher(store, webhookSecret))
	router := gin.New()
	router.POST("/webhooks/signature-provider", handler.HandleSignatureEvent)
	return router
}

func pendingDocumentStore(t *testing.T) *service.DocumentStore {
	t.Helper()
	store := service.NewDocumentStore()
	store.SaveDocument(&model.Document{
		ID:            "doc-1",
		CompanyID:     "c1",
		Status:        model.StatusPending,
		ExternalToken: "tok-1",
		Signers: []*model.Signer{
			{ID: "s1", DocumentID: "doc-1", Status: model.SignerStatusPending},
		},
	})
	return store
}

func postWebhook(t *testing.T, router *gin.Engine, payload map[string]any, signature string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	if signature == "" {
		signature = service.ComputeSignature(webhookSecret, raw)
	}

	req := httptest.NewRequest("POST", "/webhooks/signature-provider", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookSignedEvent(t *testing.T) {
	store := pendingDocumentStore(t)
	router := webhookRouter(store)

	w := postWebhook(t, router, map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-1",
		"signer_id":      "s1",
		"event_type":     "signed",
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	doc := store.GetDocument("doc-1")
	if doc.Status != model.StatusSigned {
		t.Errorf("Expected status signed, got %s", doc.Status)
	}
	if doc.Signers[0].Status != model.SignerStatusSigned {
		t.Errorf("Expected signer signed, got %s", doc.Signers[0].Status)
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	store := pendingDocumentStore(t)
	router := webhookRouter(store)

	w := postWebhook(t, router, map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-1",
		"signer_id":      "s1",
		"event_type":     "signed",
	}, "deadbeef")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", w.Code)
	}
	if store.GetDocument("doc-1").Status != model.StatusPending {
		t.Error("Expected store untouched")
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	store := pendingDocumentStore(t)
	router := webhookRouter(store)
	payload := map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-1",
		"signer_id":      "s1",
		"event_type":     "signed",
	}

	if w := postWebhook(t, router, payload, ""); w.Code != http.StatusOK {
		t.Fatalf("First delivery failed: %d", w.Code)
	}
	if w := postWebhook(t, router, payload, ""); w.Code != http.StatusOK {
		t.Fatalf("Expected duplicate delivery to be acknowledged, got %d", w.Code)
	}
	if store.GetDocument("doc-1").Status != model.StatusSigned {
		t.Errorf("Expected status signed, got %s", store.GetDocument("doc-1").Status)
	}
}

func TestWebhookUnknownDocument(t *testing.T) {
	router := webhookRouter(service.NewDocumentStore())

	w := postWebhook(t, router, map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-missing",
		"event_type":     "signed",
		"signer_id":      "s1",
	}, "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	store := pendingDocumentStore(t)
	router := webhookRouter(store)

	w := postWebhook(t, router, map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-1",
		"event_type":     "doc_viewed",
	}, "")

	if w.Code != http.StatusOK {
		t.Errorf("Expected unknown event to be acknowledged with 200, got %d", w.Code)
	}
	if store.GetDocument("doc-1").Status != model.StatusPending {
		t.Error("Expected store untouched")
	}
}

func TestWebhookDeclinedCancelsDocument(t *testing.T) {
	store := pendingDocumentStore(t)
	router := webhookRouter(store)

	w := postWebhook(t, router, map[string]any{
		"event_id":       "ev-1",
		"document_token": "tok-1",
		"signer_id":      "s1",
		"event_type":     "doc_refused",
	}, "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	doc := store.GetDocument("doc-1")
	if doc.Status != model.StatusCancelled {
		t.Errorf("Expected status cancelled, got %s", doc.Status)
	}
	if doc.Signers[0].Status != model.SignerStatusDeclined {
		t.Errorf("Expected signer declined, got %s", doc.Signers[0].Status)
	}
}
