package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Gabriel-Santos7/zapsign-api/config"
	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// GeminiAnalyzer is the primary analysis provider.
type GeminiAnalyzer struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	maxTextLength int
}

func NewGeminiAnalyzer(ctx context.Context, cfg *config.GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	m := client.GenerativeModel(cfg.Model)
	m.SetTemperature(0.3)
	m.SetMaxOutputTokens(2048)

	return &GeminiAnalyzer{
		client:        client,
		model:         m,
		maxTextLength: cfg.MaxTextLength,
	}, nil
}

func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	// Truncate to save tokens
	text = truncateText(text, g.maxTextLength)

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildAnalysisPrompt(text)))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, model.Errorf(model.KindProviderAPIError, "empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	result, err := parseAnalysisResponse(sb.String())
	if err != nil {
		// A garbled response is not retried via fallback; surface it.
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}

	return result, nil
}

func buildAnalysisPrompt(text string) string {
	return fmt.Sprintf(`Analyze the following document and provide a structured JSON response.

Document text:
%s

Provide a JSON response with the following structure:
{
  "summary": "Executive summary (3-5 sentences)",
  "missing_topics": ["Topic 1", "Topic 2"],
  "insights": {
    "key_points": ["Point 1", "Point 2"],
    "recommendations": ["Recommendation 1"],
    "risks": ["Risk 1"]
  }
}

Important:
- missing_topics should identify important topics that may be missing (legal/contractual context), most relevant first
- key_points should be the most important points from the document
- recommendations should be contextual suggestions based on document completeness
- risks should identify potential legal or business risks
- Return ONLY valid JSON, no markdown, no explanations, no code blocks
- Maximum 10 items per array
`, text)
}

// truncateText cuts text to at most max bytes on a rune boundary, so a
// multi-byte character is never split into an invalid trailing sequence.
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// parseAnalysisResponse parses the model output, tolerating markdown code
// fences around the JSON body.
func parseAnalysisResponse(raw string) (*model.AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// classifyGeminiError maps an API failure to the fallback taxonomy.
// Client-side mistakes (bad request, bad credentials) are left
// unclassified: retrying them on another provider cannot help.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.E(model.KindProviderTimeout, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return model.E(model.KindProviderRateLimited, err)
		case apiErr.Code == 408 || apiErr.Code == 504:
			return model.E(model.KindProviderTimeout, err)
		case apiErr.Code >= 500:
			return model.E(model.KindProviderAPIError, err)
		default:
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"):
		return model.E(model.KindProviderRateLimited, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline"):
		return model.E(model.KindProviderTimeout, err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "api key"),
		strings.Contains(msg, "permission"):
		return err
	default:
		return model.E(model.KindProviderAPIError, err)
	}
}
