package config

import "time"

// Embedding providers.
const (
	ProviderStatic = "static"
	ProviderMock   = "mock"
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderStatic
	}
	// Ollama detects the dimension from the model when left at 0.
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider != ProviderOllama {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOllama:
			cfg.Embedding.Model = "nomic-embed-text"
		case ProviderONNX:
			cfg.Embedding.Model = "all-MiniLM-L6-v2"
		default:
			cfg.Embedding.Model = cfg.Embedding.Provider
		}
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == ProviderONNX {
		cfg.Embedding.ModelPath = "/usr/local/var/ragstore/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Ollama.Host == "" {
		cfg.Embedding.Ollama.Host = "http://localhost:11434"
	}
	if cfg.Embedding.Ollama.Timeout == 0 {
		cfg.Embedding.Ollama.Timeout = 30 * time.Second
	}
	if cfg.Embedding.Ollama.MaxRetries == 0 {
		cfg.Embedding.Ollama.MaxRetries = 3
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.M == 0 {
		cfg.Index.M = 16
	}
	if cfg.Index.EfSearch == 0 {
		cfg.Index.EfSearch = 20
	}
	if cfg.Query.DefaultK == 0 {
		cfg.Query.DefaultK = 3
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 800
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 4
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Ingest.Directories) > 0 && cfg.Ingest.Recursive == nil {
		t := true
		cfg.Ingest.Recursive = &t
	}
}
