package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Gabriel-Santos7/zapsign-api/config"
	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// SignatureProvider is the outbound facade to the external signature
// service. It never mutates documents: callers drive the state machine
// with the returned envelope.
type SignatureProvider interface {
	CreateDocument(ctx context.Context, name, urlPDF string, signers []*model.Signer) (*SignatureEnvelope, error)
	GetDocument(ctx context.Context, token string) (*ProviderDocument, error)
	CancelDocument(ctx context.Context, token string) error
}

// ProviderDocument is the provider's current view of a dispatched
// document, used to reconcile state after missed webhook deliveries.
type ProviderDocument struct {
	Status  string
	Signers []ProviderSigner
}

// ProviderSigner carries a signer's provider-side status. ExternalID is
// our signer ID, echoed back from dispatch.
type ProviderSigner struct {
	ExternalID string
	Status     string
}

// SignatureEnvelope is the provider's view of a dispatched document.
// SignerTokens is keyed by our signer IDs (sent as external_id).
type SignatureEnvelope struct {
	Token        string
	OpenID       string
	SignerTokens map[string]string
}

type ZapSignService struct {
	config     *config.ZapSignConfig
	httpClient *http.Client
}

type zapsignSignerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	ExternalID string `json:"external_id,omitempty"`
}

type zapsignDocRequest struct {
	Name    string                 `json:"name"`
	URLPDF  string                 `json:"url_pdf"`
	Signers []zapsignSignerRequest `json:"signers"`
}

type zapsignDocResponse struct {
	OpenID  int    `json:"open_id"`
	Token   string `json:"token"`
	Status  string `json:"status"`
	Signers []struct {
		Token      string `json:"token"`
		ExternalID string `json:"external_id"`
		Status     string `json:"status"`
		SignURL    string `json:"sign_url"`
	} `json:"signers"`
}

func NewZapSignService(cfg *config.ZapSignConfig) *ZapSignService {
	return &ZapSignService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateDocument registers the document with ZapSign and returns its
// token, open id and per-signer tokens.
func (s *ZapSignService) CreateDocument(ctx context.Context, name, urlPDF string, signers []*model.Signer) (*SignatureEnvelope, error) {
	reqBody := zapsignDocRequest{
		Name:   name,
		URLPDF: urlPDF,
	}
	for _, signer := range signers {
		reqBody.Signers = append(reqBody.Signers, zapsignSignerRequest{
			Name:       signer.Name,
			Email:      signer.Email,
			ExternalID: signer.ID,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/api/v1/docs/", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.Errorf(model.KindSendFailure,
			"zapsign api error: %d - %s", resp.StatusCode, truncate(string(body), 500))
	}

	var result zapsignDocResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to parse response: %v", err)
	}
	if result.Token == "" {
		return nil, model.Errorf(model.KindSendFailure, "zapsign response missing document token")
	}

	envelope := &SignatureEnvelope{
		Token:        result.Token,
		OpenID:       strconv.Itoa(result.OpenID),
		SignerTokens: make(map[string]string),
	}
	for _, signer := range result.Signers {
		if signer.ExternalID != "" {
			envelope.SignerTokens[signer.ExternalID] = signer.Token
		}
	}

	return envelope, nil
}

// GetDocument fetches the provider's current view of a document.
func (s *ZapSignService) GetDocument(ctx context.Context, token string) (*ProviderDocument, error) {
	url := fmt.Sprintf("%s/api/v1/docs/%s/", s.config.APIURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.Errorf(model.KindSendFailure,
			"zapsign api error: %d - %s", resp.StatusCode, truncate(string(body), 500))
	}

	var result zapsignDocResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, model.Errorf(model.KindSendFailure, "failed to parse response: %v", err)
	}

	remote := &ProviderDocument{Status: result.Status}
	for _, signer := range result.Signers {
		remote.Signers = append(remote.Signers, ProviderSigner{
			ExternalID: signer.ExternalID,
			Status:     signer.Status,
		})
	}
	return remote, nil
}

// CancelDocument cancels a dispatched document on the provider side.
func (s *ZapSignService) CancelDocument(ctx context.Context, token string) error {
	url := fmt.Sprintf("%s/api/v1/docs/%s/cancel/", s.config.APIURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return model.Errorf(model.KindSendFailure, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.Errorf(model.KindSendFailure, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return model.Errorf(model.KindSendFailure,
			"zapsign api error: %d - %s", resp.StatusCode, truncate(string(body), 500))
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
