package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/config"
)

// NewEmbedder builds the embedder selected by cfg.Provider and wraps it in a
// CachedEmbedder unless cfg.CacheSize is negative.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		emb Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderStatic, "":
		emb = NewStaticEmbedder(cfg.Dimensions)
	case config.ProviderMock:
		emb = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderONNX:
		emb, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:   cfg.ModelPath,
			LibraryPath: cfg.LibraryPath,
			ModelName:   cfg.Model,
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.ProviderOllama:
		emb, err = NewOllamaEmbedder(ctx, OllamaOptions{
			Host:              cfg.Ollama.Host,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           cfg.Ollama.Timeout,
			MaxRetries:        cfg.Ollama.MaxRetries,
			RequestsPerSecond: cfg.Ollama.RequestsPerSecond,
			Logger:            logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize < 0 {
		return emb, nil
	}
	return NewCachedEmbedder(emb, cfg.CacheSize), nil
}
