package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/philippgille/chromem-go"
)

// DefaultBatchSize is the number of texts sent per request when BatchSize is zero.
const DefaultBatchSize = 64

// Client talks to an OpenAI-compatible embeddings endpoint (llama.cpp, Ollama, OpenAI).
// It is safe for concurrent use.
type Client struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	BatchSize    int // Maximum texts per request
	client       *http.Client
}

// NewClient creates a new embeddings client.
// All embeddings returned by EmbedTexts are validated against expectedSize.
func NewClient(baseURL, apiKey, model string, expectedSize int) *Client {
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		BatchSize:    DefaultBatchSize,
		client:       http.DefaultClient,
	}
}

// Request is the payload for the embeddings API.
type Request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// Data is a single embedding in the response.
type Data struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Response is the embeddings API response.
type Response struct {
	Data []Data `json:"data"`
}

// EmbedTexts returns one vector per input text, in input order.
// Large inputs are split into requests of at most BatchSize texts.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		result = append(result, vecs...)
	}

	return result, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	body, err := json.Marshal(Request{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var embeddingsResp Response
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	// Servers may return data out of order; index is authoritative
	sort.SliceStable(embeddingsResp.Data, func(i, j int) bool {
		return embeddingsResp.Data[i].Index < embeddingsResp.Data[j].Index
	})

	result := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if c.ExpectedSize > 0 && len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}

// Func adapts the client to chromem-go's single-text embedding function.
func (c *Client) Func() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := c.EmbedTexts(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vecs[0], nil
	}
}
