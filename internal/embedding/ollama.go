package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/ragstore/pkg/utils"
)

// OllamaOptions configures the remote embedding API client.
type OllamaOptions struct {
	Host              string
	Model             string
	Dimensions        int // 0 = detect from the model
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64 // 0 = unlimited
	HTTPClient        *http.Client
	Logger            *zap.Logger
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder calls an Ollama-compatible /api/embed endpoint.
type OllamaEmbedder struct {
	host       string
	model      string
	dimensions int
	maxRetries int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewOllamaEmbedder creates the client and probes the model once to learn its
// dimension. A configured dimension that disagrees with the model is an error.
func NewOllamaEmbedder(ctx context.Context, opts OllamaOptions) (*OllamaEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if opts.Host == "" {
		opts.Host = "http://localhost:11434"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	e := &OllamaEmbedder{
		host:       strings.TrimRight(opts.Host, "/"),
		model:      opts.Model,
		maxRetries: opts.MaxRetries,
		client:     client,
		logger:     utils.OrNop(opts.Logger),
	}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	probe, err := e.request(ctx, []string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("ollama: probe model %s at %s: %w", e.model, e.host, err)
	}
	detected := len(probe[0])
	if detected == 0 {
		return nil, fmt.Errorf("ollama: model %s returned an empty embedding", e.model)
	}
	if opts.Dimensions > 0 && opts.Dimensions != detected {
		return nil, fmt.Errorf("ollama: configured dimensions %d but model %s produces %d", opts.Dimensions, e.model, detected)
	}
	e.dimensions = detected
	e.logger.Info("ollama embedder ready",
		zap.String("host", e.host),
		zap.String("model", e.model),
		zap.Int("dimensions", detected))
	return e, nil
}

// Embed returns the embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in a single request.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.request(ctx, texts)
}

// Dimensions returns the detected embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the remote model name.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// request sends texts with bounded exponential retries. Transport errors and
// 5xx answers are retried; 4xx answers are not.
func (e *OllamaEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result [][]float32
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(e.maxRetries), retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := e.doRequest(ctx, body)
		if err != nil {
			e.logger.Debug("embedding request failed",
				zap.Int("attempt", attempt),
				zap.Int("texts", len(texts)),
				zap.Error(err))
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(result), len(texts))
	}
	return result, nil
}

func (e *OllamaEmbedder) doRequest(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	out := make([][]float32, len(decoded.Embeddings))
	for i, emb := range decoded.Embeddings {
		vec := make([]float32, len(emb))
		for j, v := range emb {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
