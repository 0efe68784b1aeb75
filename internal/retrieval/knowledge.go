package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KnowledgeBackend answers sub-questions through a managed retrieval
// endpoint: one natural-language question per call, POSTed as JSON. The
// response carries the retrieved content plus the structured query the
// service ran, which we keep for logging.
type KnowledgeBackend struct {
	endpoint string
	client   *http.Client
}

// NewKnowledge creates a backend for the given endpoint URL.
func NewKnowledge(endpoint string, timeout time.Duration) (*KnowledgeBackend, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("knowledge endpoint is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KnowledgeBackend{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type knowledgeRequest struct {
	Question string `json:"question"`
}

type knowledgeResponse struct {
	Content string `json:"content"`
	Query   string `json:"query"`
}

// Answer issues one retrieval call for the question.
func (b *KnowledgeBackend) Answer(ctx context.Context, question string) (string, string, error) {
	body, err := json.Marshal(knowledgeRequest{Question: question})
	if err != nil {
		return "", "", fmt.Errorf("encode retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("retrieval request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("retrieval endpoint returned %d: %s", resp.StatusCode, snippet)
	}

	var kr knowledgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&kr); err != nil {
		return "", "", fmt.Errorf("decode retrieval response: %w", err)
	}
	if kr.Content == "" {
		return "", kr.Query, fmt.Errorf("retrieval endpoint returned empty content")
	}
	return kr.Content, kr.Query, nil
}
