package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Gabriel-Santos7/zapsign-api/middleware"
	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/pkg/logger"
	"github.com/Gabriel-Santos7/zapsign-api/service"
)

type DocumentHandler struct {
	store    *service.DocumentStore
	storage  *service.MinioService
	provider service.SignatureProvider
}

func NewDocumentHandler(store *service.DocumentStore, storage *service.MinioService, provider service.SignatureProvider) *DocumentHandler {
	return &DocumentHandler{
		store:    store,
		storage:  storage,
		provider: provider,
	}
}

type CreateDocumentRequest struct {
	Title   string          `json:"title" binding:"required"`
	FileURL string          `json:"file_url" binding:"required"`
	Signers []SignerRequest `json:"signers" binding:"omitempty,dive"`
}

type SignerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// Create creates a draft document from an already-hosted PDF URL
func (h *DocumentHandler) Create(c *gin.Context) {
	company := middleware.GetCompany(c)

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	now := time.Now()
	doc := &model.Document{
		ID:        uuid.New().String(),
		CompanyID: company,
		Title:     req.Title,
		SourceURL: req.FileURL,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, s := range req.Signers {
		doc.Signers = append(doc.Signers, &model.Signer{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Name:       s.Name,
			Email:      s.Email,
			Status:     model.SignerStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	h.store.SaveDocument(doc)

	c.JSON(http.StatusCreated, doc)
}

// Upload handles PDF upload; the file lands in object storage and a draft
// document pointing at a presigned URL is created
func (h *DocumentHandler) Upload(c *gin.Context) {
	company := middleware.GetCompany(c)

	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not configured"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" && !strings.Contains(contentType, "pdf") {
		// Declared type disagrees; sniff the file header before rejecting
		buffer := make([]byte, 512)
		if _, err := file.Read(buffer); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
			return
		}
		file.Seek(0, io.SeekStart)

		detected := http.DetectContentType(buffer)
		if !strings.Contains(detected, "pdf") && detected != "application/octet-stream" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
			return
		}
	}

	documentID := uuid.New().String()
	objectName := service.DocumentObjectName(company, documentID, header.Filename)

	if err := h.storage.UploadDocumentPDF(c.Request.Context(), objectName, file, header.Size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	sourceURL, err := h.storage.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	now := time.Now()
	doc := &model.Document{
		ID:        documentID,
		CompanyID: company,
		Title:     header.Filename,
		SourceURL: sourceURL,
		Status:    model.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	h.store.SaveDocument(doc)

	c.JSON(http.StatusCreated, doc)
}

// List returns all documents for the current company
func (h *DocumentHandler) List(c *gin.Context) {
	company := middleware.GetCompany(c)
	docs := h.store.ListByCompany(company)

	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		result[i] = gin.H{
			"id":         doc.ID,
			"title":      doc.Title,
			"status":     doc.Status,
			"signers":    len(doc.Signers),
			"created_at": doc.CreatedAt.Format(time.RFC3339),
			"updated_at": doc.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single document with its signers
func (h *DocumentHandler) Get(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Delete deletes a document, cascading to its signers and analyses
func (h *DocumentHandler) Delete(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}

	h.store.DeleteDocument(doc.ID)

	// Best-effort sweep of the document's uploaded files; the aggregate
	// is already gone.
	if h.storage != nil {
		if err := h.storage.RemoveDocumentFiles(c.Request.Context(), doc.CompanyID, doc.ID); err != nil {
			logger.Warn(c.Request.Context(), "failed to remove document files",
				"document_id", doc.ID,
				"error", err.Error(),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}

// AddSigner attaches a signer to a draft document
func (h *DocumentHandler) AddSigner(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}

	var req SignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	unlock := h.store.LockDocument(doc.ID)
	defer unlock()

	if doc.Status != model.StatusDraft {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Signers can only be added to draft documents",
			"errorKind": string(model.KindInvalidStateTransition),
		})
		return
	}

	now := time.Now()
	signer := &model.Signer{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Name:       req.Name,
		Email:      req.Email,
		Status:     model.SignerStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	doc.Signers = append(doc.Signers, signer)
	h.store.SaveDocument(doc)

	c.JSON(http.StatusCreated, signer)
}

// Send dispatches a draft document to the signature provider and applies
// the draft -> pending transition. The document's lock is held across the
// provider call so concurrent sends cannot both dispatch.
func (h *DocumentHandler) Send(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}

	unlock := h.store.LockDocument(doc.ID)
	defer unlock()

	if doc.Status != model.StatusDraft || len(doc.Signers) == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":     fmt.Sprintf("Document in status %s with %d signers cannot be sent", doc.Status, len(doc.Signers)),
			"errorKind": string(model.KindInvalidStateTransition),
		})
		return
	}

	envelope, err := h.provider.CreateDocument(c.Request.Context(), doc.Title, doc.SourceURL, doc.Signers)
	if err != nil {
		logger.Error(c.Request.Context(), "signature provider send failed",
			"document_id", doc.ID,
			"error", err.Error(),
		)
		if err := service.MarkSendFailed(doc); err == nil {
			h.store.SaveDocument(doc)
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to send document to signature provider",
			"errorKind": string(model.KindSendFailure),
		})
		return
	}

	if err := service.MarkSent(doc, envelope.Token, envelope.OpenID); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"errorKind": string(model.KindOf(err)),
		})
		return
	}
	for _, signer := range doc.Signers {
		if token, ok := envelope.SignerTokens[signer.ID]; ok {
			signer.ExternalToken = token
		}
	}
	h.store.SaveDocument(doc)

	c.JSON(http.StatusOK, doc)
}

// RefreshStatus polls the provider for a pending document's current
// state and replays what the webhooks missed through the state machine
func (h *DocumentHandler) RefreshStatus(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}

	unlock := h.store.LockDocument(doc.ID)
	defer unlock()

	if doc.Status != model.StatusPending {
		c.JSON(http.StatusConflict, gin.H{
			"error":     fmt.Sprintf("Document in status %s has no provider state to refresh", doc.Status),
			"errorKind": string(model.KindInvalidStateTransition),
		})
		return
	}

	remote, err := h.provider.GetDocument(c.Request.Context(), doc.ExternalToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to fetch document status from signature provider",
			"errorKind": string(model.KindSendFailure),
		})
		return
	}

	if service.SyncProviderStatus(doc, remote) {
		h.store.SaveDocument(doc)
		logger.Info(c.Request.Context(), "document state refreshed from provider",
			"document_id", doc.ID,
			"status", doc.Status,
		)
	}

	c.JSON(http.StatusOK, doc)
}

// Stats returns per-status document counts for the current company
func (h *DocumentHandler) Stats(c *gin.Context) {
	company := middleware.GetCompany(c)
	docs := h.store.ListByCompany(company)

	byStatus := map[string]int{}
	signers := 0
	for _, doc := range docs {
		byStatus[doc.Status]++
		signers += len(doc.Signers)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(docs),
		"by_status": byStatus,
		"signers":   signers,
	})
}

const defaultStaleAfterHours = 48

// Alerts lists the company's pending documents that have not moved for
// longer than the threshold (default 48h, override with ?hours=)
func (h *DocumentHandler) Alerts(c *gin.Context) {
	company := middleware.GetCompany(c)

	hours := defaultStaleAfterHours
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var stale []gin.H
	for _, doc := range h.store.ListByCompany(company) {
		if doc.Status != model.StatusPending || doc.UpdatedAt.After(cutoff) {
			continue
		}
		pending := 0
		for _, s := range doc.Signers {
			if s.Status == model.SignerStatusPending {
				pending++
			}
		}
		stale = append(stale, gin.H{
			"id":              doc.ID,
			"title":           doc.Title,
			"updated_at":      doc.UpdatedAt.Format(time.RFC3339),
			"pending_signers": pending,
		})
	}
	if stale == nil {
		stale = []gin.H{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": stale, "threshold_hours": hours})
}

// Cancel cancels a pending document via the provider and rolls the state
// machine to cancelled
func (h *DocumentHandler) Cancel(c *gin.Context) {
	doc := h.companyDocument(c)
	if doc == nil {
		return
	}

	unlock := h.store.LockDocument(doc.ID)
	defer unlock()

	if doc.Status != model.StatusPending {
		c.JSON(http.StatusConflict, gin.H{
			"error":     fmt.Sprintf("Document in status %s cannot be cancelled", doc.Status),
			"errorKind": string(model.KindInvalidStateTransition),
		})
		return
	}

	if err := h.provider.CancelDocument(c.Request.Context(), doc.ExternalToken); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Failed to cancel document at signature provider",
			"errorKind": string(model.KindSendFailure),
		})
		return
	}

	if err := service.ApplyEvent(doc, &model.SignatureEvent{Type: model.EventCancelled}); err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"errorKind": string(model.KindOf(err)),
		})
		return
	}
	h.store.SaveDocument(doc)

	c.JSON(http.StatusOK, doc)
}

// companyDocument resolves the :id document scoped to the caller's
// company, writing a 404 when it does not exist or belongs elsewhere.
func (h *DocumentHandler) companyDocument(c *gin.Context) *model.Document {
	company := middleware.GetCompany(c)
	id := c.Param("id")

	doc := h.store.GetDocument(id)
	if doc == nil || doc.CompanyID != company {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Document not found",
			"errorKind": string(model.KindDocumentNotFound),
		})
		return nil
	}
	return doc
}
