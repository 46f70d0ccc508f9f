package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// ContentExtractor converts a document source URL into plain text. The
// underlying PDF engine is opaque to callers; every failure (unreachable
// URL, corrupt file, empty text) classifies as extraction_failure.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

const maxPDFSize = 32 << 20 // 32 MiB

// PDFExtractor downloads a PDF and extracts its text page by page.
type PDFExtractor struct {
	httpClient *http.Client
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *PDFExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", model.Errorf(model.KindExtractionFailure, "invalid source url: %v", err)
	}
	req.Header.Set("Accept", "application/pdf,application/octet-stream,*/*")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", model.Errorf(model.KindExtractionFailure, "failed to download pdf: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", model.Errorf(model.KindExtractionFailure,
			"unexpected status %d downloading pdf", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
	if err != nil {
		return "", model.Errorf(model.KindExtractionFailure, "failed to read pdf: %v", err)
	}

	text, err := extractText(data)
	if err != nil {
		return "", model.Errorf(model.KindExtractionFailure, "failed to parse pdf: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", model.Errorf(model.KindExtractionFailure, "no text could be extracted")
	}

	return text, nil
}

func extractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n\n")
		}
	}

	return sb.String(), nil
}
