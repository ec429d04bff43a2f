package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urbanisierung/knowledge-index/internal/kerrors"
)

// DefaultOllamaHost is the default local Ollama API endpoint.
const DefaultOllamaHost = "http://localhost:11434"

// DefaultOllamaTimeout bounds a single embedding request.
const DefaultOllamaTimeout = 30 * time.Second

// OllamaVectorizer calls a local Ollama HTTP endpoint's /api/embeddings
// route. The embedding model itself is the external collaborator the
// core treats as a pure function; this type is only that pure function's
// HTTP-calling boundary.
type OllamaVectorizer struct {
	host       string
	model      string
	dimension  int
	httpClient *http.Client
}

var _ Vectorizer = (*OllamaVectorizer)(nil)

// NewOllamaVectorizer constructs a vectoriser against a running Ollama
// server. dimension must be known ahead of time (model-defined); it is
// not auto-detected here since that would require a network round trip
// at construction time, which this package's boundary avoids.
func NewOllamaVectorizer(host, model string, dimension int) *OllamaVectorizer {
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaVectorizer{
		host:      host,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: DefaultOllamaTimeout,
		},
	}
}

func (o *OllamaVectorizer) Dimension() int { return o.dimension }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Vectorize embeds each text with one request per item. Ollama's
// single-prompt /api/embeddings endpoint has no batch form, so the
// batching the Embedder performs upstream bounds memory, not request
// count.
func (o *OllamaVectorizer) Vectorize(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (o *OllamaVectorizer) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, kerrors.Wrap(kerrors.InvalidInput, "encode ollama request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "build ollama request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, kerrors.Wrap(kerrors.CapabilityUnavailable, "ollama request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, kerrors.New(kerrors.CapabilityUnavailable, fmt.Sprintf("ollama returned status %d", resp.StatusCode))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, kerrors.Wrap(kerrors.IO, "decode ollama response", err)
	}
	return parsed.Embedding, nil
}
