package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/pkg/logger"
	"github.com/Gabriel-Santos7/zapsign-api/service"
)

// SignatureHeader carries the provider's HMAC of the request body.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	dispatcher *service.WebhookDispatcher
}

func NewWebhookHandler(dispatcher *service.WebhookDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// HandleSignatureEvent receives signature lifecycle callbacks from the
// provider. Unknown-but-authentic event shapes are acknowledged so the
// provider does not retry payloads we intentionally don't model.
func (h *WebhookHandler) HandleSignatureEvent(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	err = h.dispatcher.Handle(c.Request.Context(), raw, c.GetHeader(SignatureHeader))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	switch model.KindOf(err) {
	case model.KindUnauthorizedWebhook:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid webhook signature",
			"errorKind": string(model.KindUnauthorizedWebhook),
		})
	case model.KindDocumentNotFound:
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Document not found",
			"errorKind": string(model.KindDocumentNotFound),
		})
	case model.KindUnknownEvent:
		// Acknowledged on purpose: retrying cannot make the payload known.
		logger.Warn(c.Request.Context(), "unknown webhook event acknowledged", "error", err.Error())
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
	}
}
