package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/retriever"
)

var ErrNoDocuments = errors.New("no documents to index")

// Options controls an index build.
type Options struct {
	DocsDir      string
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	// Force rebuilds into a non-empty index.
	Force bool
}

// Stats summarises a build.
type Stats struct {
	Pages    int
	Chunks   int
	Skipped  map[string]error
	Duration time.Duration
	// Existing is set when the build was skipped because the index already
	// held chunks.
	Existing int
}

// Build loads, splits and indexes the documents under opts.DocsDir. An index
// that already holds chunks is left alone unless opts.Force is set.
func Build(ctx context.Context, ix *retriever.Index, tok Tokenizer, opts Options, logger *zap.Logger) (Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ix.Ready(); err != nil {
		return Stats{}, err
	}
	if n := ix.Count(); n > 0 && !opts.Force {
		logger.Info("document index already populated", zap.Int("chunks", n))
		return Stats{Existing: n}, nil
	}

	start := time.Now()
	pages, skipped, err := LoadDir(opts.DocsDir)
	if err != nil {
		return Stats{}, err
	}
	for name, loadErr := range skipped {
		logger.Warn("skipping unreadable document", zap.String("file", name), zap.Error(loadErr))
	}
	if len(pages) == 0 {
		return Stats{Skipped: skipped}, fmt.Errorf("%w in %s", ErrNoDocuments, opts.DocsDir)
	}

	if tok == nil {
		tok, err = NewTiktokenizer()
		if err != nil {
			return Stats{}, err
		}
	}
	splitter, err := NewSplitter(tok, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return Stats{}, err
	}
	docs := splitter.Split(pages)

	if err := ix.Add(ctx, docs, opts.Concurrency); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Pages:    len(pages),
		Chunks:   len(docs),
		Skipped:  skipped,
		Duration: time.Since(start),
	}
	logger.Info("document index built",
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", len(skipped)),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
