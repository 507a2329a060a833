package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/extract"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Inserter stores one chunk of text. Both *store.Store and *client.Client satisfy it.
type Inserter interface {
	Insert(ctx context.Context, text string) (int, error)
}

// FileResult describes the ingestion of a single file.
type FileResult struct {
	Path      string
	Chunks    int
	Positions []int
	Skipped   bool
}

// Result summarizes a directory run.
type Result struct {
	Files   int
	Skipped int
	Failed  int
	Chunks  int
}

// Ingester extracts, chunks and inserts files.
type Ingester struct {
	inserter   Inserter
	extractor  *extract.Extractor
	chunker    *Chunker
	extensions []string
	workers    int
	recursive  bool
	logger     *zap.Logger

	mu   sync.Mutex
	seen map[string]string // absolute path -> content fingerprint
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger used for per-file progress and failures.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// New creates an ingester. extractor may be nil, in which case files are read as plain text.
func New(inserter Inserter, extractor *extract.Extractor, cfg *config.IngestConfig, opts ...Option) *Ingester {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	in := &Ingester{
		inserter:   inserter,
		extractor:  extractor,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extensions: cfg.Extensions,
		workers:    workers,
		recursive:  cfg.RecursiveOrDefault(),
		logger:     zap.NewNop(),
		seen:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Matches reports whether path has one of the configured extensions. An empty list matches everything.
func (in *Ingester) Matches(path string) bool {
	return extensionAllowed(filepath.Ext(path), in.extensions)
}

// IngestFile extracts path, splits it into chunks and inserts them in order.
// A file whose content was already ingested, or is being ingested, is skipped.
func (in *Ingester) IngestFile(ctx context.Context, path string) (*FileResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	result := &FileResult{Path: absPath}
	fingerprint := fingerprint(content)
	previous, claimed := in.claim(absPath, fingerprint)
	if !claimed {
		in.logger.Debug("ingest skipping unchanged file", zap.String("path", absPath))
		result.Skipped = true
		return result, nil
	}

	text, err := in.extract(content, filepath.Ext(absPath))
	if err != nil {
		in.release(absPath, fingerprint, previous)
		return nil, fmt.Errorf("extract content: %w", err)
	}
	for _, chunk := range in.chunker.Chunk(text) {
		position, err := in.inserter.Insert(ctx, chunk)
		if err != nil {
			in.release(absPath, fingerprint, previous)
			return result, fmt.Errorf("insert chunk %d of %s: %w", result.Chunks, absPath, err)
		}
		result.Chunks++
		result.Positions = append(result.Positions, position)
	}
	in.logger.Info("ingested file", zap.String("path", absPath), zap.Int("chunks", result.Chunks))
	return result, nil
}

// IngestDir ingests every matching regular file under dir. Files are processed
// concurrently; a failing file is logged and counted without stopping the run.
// The returned error is non-nil only when dir cannot be walked or ctx ends.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (*Result, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var files, skipped, failed, chunks atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.workers)
	walkErr := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && !in.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !in.Matches(path) {
			return nil
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			res, err := in.IngestFile(gctx, path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				in.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
				if res != nil {
					chunks.Add(int64(res.Chunks))
				}
				return nil
			}
			if res.Skipped {
				skipped.Add(1)
				return nil
			}
			files.Add(1)
			chunks.Add(int64(res.Chunks))
			return nil
		})
		return nil
	})
	groupErr := g.Wait()

	result := &Result{
		Files:   int(files.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
		Chunks:  int(chunks.Load()),
	}
	if err := errors.Join(walkErr, groupErr); err != nil {
		return result, err
	}
	in.logger.Info("ingested directory",
		zap.String("dir", absDir),
		zap.Int("files", result.Files),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("chunks", result.Chunks))
	return result, nil
}

// HandleChange ingests a file reported by the watcher and logs any failure.
func (in *Ingester) HandleChange(ctx context.Context, path string) {
	if _, err := in.IngestFile(ctx, path); err != nil {
		in.logger.Warn("ingest on change failed", zap.String("path", path), zap.Error(err))
	}
}

func (in *Ingester) extract(content []byte, ext string) (string, error) {
	if in.extractor != nil {
		return in.extractor.ExtractBytes(content, ext)
	}
	return string(content), nil
}

// claim records fp as the content of path before any chunk is inserted, so
// concurrent ingestions of the same content insert it once. It reports false
// when fp is already recorded, and returns the fingerprint it replaced.
func (in *Ingester) claim(path, fp string) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	previous := in.seen[path]
	if previous == fp {
		return previous, false
	}
	in.seen[path] = fp
	return previous, true
}

// release undoes a failed claim unless a newer ingestion replaced it.
func (in *Ingester) release(path, fp, previous string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.seen[path] != fp {
		return
	}
	if previous == "" {
		delete(in.seen, path)
		return
	}
	in.seen[path] = previous
}

func fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
