package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Gabriel-Santos7/zapsign-api/model"
	"github.com/Gabriel-Santos7/zapsign-api/pkg/logger"
)

// AnalysisProvider produces a structured analysis of extracted document
// text. Implementations: GeminiAnalyzer (primary), LocalAnalyzer
// (secondary). Failures carry an ErrorKind classification where the
// orchestrator needs one to decide on fallback.
type AnalysisProvider interface {
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
}

// AnalysisOrchestrator runs the extraction + analysis pipeline and
// appends immutable AnalysisRecords.
//
// Whether a primary provider exists is decided once at construction: a
// nil primary means every analysis goes straight to the secondary with
// no fallback reason recorded.
type AnalysisOrchestrator struct {
	store            *DocumentStore
	extractor        ContentExtractor
	primary          AnalysisProvider
	secondary        AnalysisProvider
	primaryTimeout   time.Duration
	secondaryTimeout time.Duration
}

func NewAnalysisOrchestrator(store *DocumentStore, extractor ContentExtractor, primary, secondary AnalysisProvider, primaryTimeout, secondaryTimeout time.Duration) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		store:            store,
		extractor:        extractor,
		primary:          primary,
		secondary:        secondary,
		primaryTimeout:   primaryTimeout,
		secondaryTimeout: secondaryTimeout,
	}
}

// Analyze extracts the document text, runs the primary provider with a
// bounded timeout and falls back to the secondary on a classified
// failure (timeout, rate limit, API error). Any other primary failure
// surfaces directly without a secondary attempt. Exactly one record is
// appended per successful run; failed runs persist nothing.
func (o *AnalysisOrchestrator) Analyze(ctx context.Context, documentID string) (*model.AnalysisRecord, error) {
	doc := o.store.GetDocument(documentID)
	if doc == nil {
		return nil, model.Errorf(model.KindDocumentNotFound, "document %s not found", documentID)
	}
	if doc.SourceURL == "" {
		return nil, model.Errorf(model.KindExtractionFailure, "document %s has no source url", documentID)
	}

	text, err := o.extractor.Extract(ctx, doc.SourceURL)
	if err != nil {
		if model.KindOf(err) == "" {
			err = model.E(model.KindExtractionFailure, err)
		}
		return nil, err
	}

	var fallbackReason model.ErrorKind
	if o.primary != nil {
		pctx, cancel := context.WithTimeout(ctx, o.primaryTimeout)
		result, err := o.primary.Analyze(pctx, text)
		cancel()

		if err == nil {
			analysisRunsTotal.WithLabelValues(model.ProviderPrimary, "success").Inc()
			return o.persist(documentID, model.ProviderPrimary, result, ""), nil
		}

		switch kind := classifyPrimaryFailure(err); kind {
		case model.KindProviderTimeout, model.KindProviderRateLimited, model.KindProviderAPIError:
			fallbackReason = kind
			analysisFallbacksTotal.WithLabelValues(string(kind)).Inc()
			logger.Warn(ctx, "primary analysis failed, falling back to secondary",
				"document_id", documentID,
				"reason", string(kind),
				"error", err.Error(),
			)
		default:
			// Unclassified failures are not recoverable via fallback.
			analysisRunsTotal.WithLabelValues(model.ProviderPrimary, "failure").Inc()
			return nil, err
		}
	}

	sctx, cancel := context.WithTimeout(ctx, o.secondaryTimeout)
	defer cancel()

	result, err := o.secondary.Analyze(sctx, text)
	if err != nil {
		analysisRunsTotal.WithLabelValues(model.ProviderSecondary, "failure").Inc()
		return nil, model.E(model.KindAnalysisExhausted, err)
	}

	analysisRunsTotal.WithLabelValues(model.ProviderSecondary, "success").Inc()
	return o.persist(documentID, model.ProviderSecondary, result, fallbackReason), nil
}

// persist appends the record under the document's lock so concurrent
// analyses and webhook deliveries serialize per document.
func (o *AnalysisOrchestrator) persist(documentID, provider string, result *model.AnalysisResult, fallbackReason model.ErrorKind) *model.AnalysisRecord {
	rec := &model.AnalysisRecord{
		ID:             uuid.New().String(),
		DocumentID:     documentID,
		Provider:       provider,
		Summary:        result.Summary,
		MissingTopics:  result.MissingTopics,
		Insights:       result.Insights,
		FallbackReason: fallbackReason,
		CreatedAt:      time.Now(),
	}

	unlock := o.store.LockDocument(documentID)
	defer unlock()

	// The document may have been deleted while the providers ran; the
	// cascade must not be undone by a late append.
	if o.store.GetDocument(documentID) != nil {
		o.store.AppendAnalysis(rec)
	}

	return rec
}

// classifyPrimaryFailure maps a primary provider error to its fallback
// classification. An exceeded call budget counts as a provider timeout
// even when the provider reported the raw context error.
func classifyPrimaryFailure(err error) model.ErrorKind {
	if kind := model.KindOf(err); kind != "" {
		return kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.KindProviderTimeout
	}
	return ""
}
