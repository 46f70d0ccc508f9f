package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gabriel-Santos7/zapsign-api/middleware"
	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/service"
)

type AnalysisHandler struct {
	store        *service.DocumentStore
	orchestrator *service.AnalysisOrchestrator
}

func NewAnalysisHandler(store *service.DocumentStore, orchestrator *service.AnalysisOrchestrator) *AnalysisHandler {
	return &AnalysisHandler{
		store:        store,
		orchestrator: orchestrator,
	}
}

// Analyze runs the analysis pipeline for a document and returns the
// newly appended record
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	company := middleware.GetCompany(c)
	id := c.Param("id")

	doc := h.store.GetDocument(id)
	if doc == nil || doc.CompanyID != company {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Document not found",
			"errorKind": string(model.KindDocumentNotFound),
		})
		return
	}

	record, err := h.orchestrator.Analyze(c.Request.Context(), id)
	if err != nil {
		kind := model.KindOf(err)
		status := analysisFailureStatus(kind)
		c.JSON(status, gin.H{
			"error":     err.Error(),
			"errorKind": string(kind),
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// History returns the append-only analysis history for a document,
// oldest first
func (h *AnalysisHandler) History(c *gin.Context) {
	company := middleware.GetCompany(c)
	id := c.Param("id")

	doc := h.store.GetDocument(id)
	if doc == nil || doc.CompanyID != company {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Document not found",
			"errorKind": string(model.KindDocumentNotFound),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"analyses": h.store.Analyses(id)})
}

func analysisFailureStatus(kind model.ErrorKind) int {
	switch kind {
	case model.KindDocumentNotFound:
		return http.StatusNotFound
	case model.KindExtractionFailure:
		return http.StatusFailedDependency
	default:
		return http.StatusBadGateway
	}
}
