package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// LocalAnalyzer is the secondary analysis provider: a heuristic analyzer
// that needs no external service, so it is always available once
// constructed. Quality is below the primary provider but the result shape
// is identical.
type LocalAnalyzer struct {
	topics []string
}

// defaultTopics lists clauses a contract-style document is expected to
// cover, in relevance order. Missing topics are reported in this order.
var defaultTopics = []string{
	"confidentiality",
	"termination",
	"payment",
	"liability",
	"jurisdiction",
	"warranty",
	"indemnification",
	"data protection",
}

var (
	keyPointMarkers = []string{"shall", "must", "agrees", "agreement", "obligation", "responsible"}
	riskMarkers     = []string{"penalty", "breach", "terminate", "liable", "damages", "default"}
)

func NewLocalAnalyzer() *LocalAnalyzer {
	return &LocalAnalyzer{topics: defaultTopics}
}

func (l *LocalAnalyzer) Analyze(ctx context.Context, text string) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to analyze")
	}

	sentences := splitSentences(text)
	words := tokenize(text)

	missing := l.missingTopics(words)

	var keyPoints, risks []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		if len(keyPoints) < 10 && containsAny(lower, keyPointMarkers) {
			keyPoints = append(keyPoints, s)
		}
		if len(risks) < 5 && containsAny(lower, riskMarkers) {
			risks = append(risks, s)
		}
	}

	var recommendations []string
	for _, topic := range missing {
		if len(recommendations) >= 5 {
			break
		}
		recommendations = append(recommendations, fmt.Sprintf("Consider adding a %s clause", topic))
	}

	return &model.AnalysisResult{
		Summary:       summarize(sentences),
		MissingTopics: missing,
		Insights: model.Insights{
			KeyPoints:       keyPoints,
			Recommendations: recommendations,
			Risks:           risks,
		},
	}, nil
}

// missingTopics returns the expected topics not found in the document,
// preserving the scan order of the topic list. Matching is fuzzy so that
// inflections ("terminated", "confidential") still count as coverage.
func (l *LocalAnalyzer) missingTopics(words []string) []string {
	var missing []string
	for _, topic := range l.topics {
		if !l.topicCovered(topic, words) {
			missing = append(missing, topic)
		}
	}
	return missing
}

func (l *LocalAnalyzer) topicCovered(topic string, words []string) bool {
	for _, part := range strings.Fields(topic) {
		found := false
		for _, w := range words {
			if levenshtein.Match(part, w, nil) >= 0.8 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func summarize(sentences []string) string {
	n := len(sentences)
	if n > 3 {
		n = 3
	}
	return strings.Join(sentences[:n], " ")
}

func splitSentences(text string) []string {
	var sentences []string
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		s := strings.TrimSpace(raw)
		if len(s) > 10 {
			sentences = append(sentences, s+".")
		}
	}
	return sentences
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
