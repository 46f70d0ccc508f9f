package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gabriel-Santos7/zapsign-api/model"
)

func TestExtractDownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	extractor := NewPDFExtractor()
	_, err := extractor.Extract(context.Background(), server.URL+"/missing.pdf")
	if err == nil {
		t.Fatal("Expected error for 404 download")
	}
	if model.KindOf(err) != model.KindExtractionFailure {
		t.Errorf("Expected extraction_failure, got %s", model.KindOf(err))
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a pdf"))
	}))
	defer server.Close()

	extractor := NewPDFExtractor()
	_, err := extractor.Extract(context.Background(), server.URL+"/doc.pdf")
	if model.KindOf(err) != model.KindExtractionFailure {
		t.Errorf("Expected extraction_failure for corrupt pdf, got %v", err)
	}
}

func TestExtractUnreachableHost(t *testing.T) {
	extractor := NewPDFExtractor()
	_, err := extractor.Extract(context.Background(), "http://127.0.0.1:1/doc.pdf")
	if model.KindOf(err) != model.KindExtractionFailure {
		t.Errorf("Expected extraction_failure for unreachable host, got %v", err)
	}
}

func TestExtractInvalidURL(t *testing.T) {
	extractor := NewPDFExtractor()
	_, err := extractor.Extract(context.Background(), "://not-a-url")
	if model.KindOf(err) != model.KindExtractionFailure {
		t.Errorf("Expected extraction_failure for invalid url, got %v", err)
	}
}

func TestExtractCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := NewPDFExtractor()
	_, err := extractor.Extract(ctx, server.URL+"/doc.pdf")
	if model.KindOf(err) != model.KindExtractionFailure {
		t.Errorf("Expected extraction_failure for cancelled context, got %v", err)
	}
}
