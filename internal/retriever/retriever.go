// Package retriever wraps the persisted document index. Search is
// best-effort: a failing embedding or query yields no passages, not an error.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/kjstillabower/agri-advisor/internal/models"
	"github.com/kjstillabower/agri-advisor/internal/observability"
)

const (
	DefaultTopK       = 5
	DefaultThreshold  = 0.5
	DefaultCollection = "agri_docs"

	// Metadata keys stored with every chunk.
	MetaSource = "source"
	MetaPage   = "page"
)

var ErrIndexUnavailable = errors.New("document index unavailable")

// Searcher returns passages relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string) []models.Passage
}

// Config describes where the index lives and how queries are embedded.
type Config struct {
	Dir        string
	Collection string
	TopK       int
	Embedding  EmbeddingConfig

	// Threshold is the minimum similarity kept. Nil means DefaultThreshold;
	// zero keeps every passage TopK returns.
	Threshold *float32

	// Embed overrides the embedding function built from Embedding.
	Embed chromem.EmbeddingFunc
}

// Index is a chromem collection plus the retrieval parameters.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	topK       int
	threshold  float32
	logger     *zap.Logger
}

// Open loads (or creates) the collection. An empty Dir keeps the index in
// memory, which is only useful for tests and one-shot CLI runs.
func Open(cfg Config, logger *zap.Logger) (*Index, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	threshold := float32(DefaultThreshold)
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	embed := cfg.Embed
	if embed == nil {
		var err error
		embed, err = NewEmbeddingFunc(cfg.Embedding)
		if err != nil {
			return nil, err
		}
	}

	var db *chromem.DB
	if cfg.Dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Dir, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrIndexUnavailable, cfg.Dir, err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %v", ErrIndexUnavailable, cfg.Collection, err)
	}

	return &Index{
		db:         db,
		collection: collection,
		topK:       cfg.TopK,
		threshold:  threshold,
		logger:     logger,
	}, nil
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	if ix == nil || ix.collection == nil {
		return 0
	}
	return ix.collection.Count()
}

// Ready reports whether the index can answer queries.
func (ix *Index) Ready() error {
	if ix == nil || ix.collection == nil {
		return ErrIndexUnavailable
	}
	return nil
}

// Add embeds and stores documents. concurrency bounds parallel embedding calls.
func (ix *Index) Add(ctx context.Context, docs []chromem.Document, concurrency int) error {
	if err := ix.Ready(); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if err := ix.collection.AddDocuments(ctx, docs, concurrency); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search embeds query and returns up to top-k passages with similarity at or
// above the threshold, most similar first. chromem scores are cosine
// similarities, so higher is closer.
func (ix *Index) Search(ctx context.Context, query string) []models.Passage {
	if ix.Ready() != nil {
		return []models.Passage{}
	}
	n := ix.topK
	if count := ix.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		observability.RetrievedPassages.Observe(0)
		return []models.Passage{}
	}

	results, err := ix.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		observability.RetrievalErrorsTotal.Inc()
		observability.LoggerFromContext(ctx, ix.logger).Warn("document retrieval failed", zap.Error(err))
		return []models.Passage{}
	}

	passages := make([]models.Passage, 0, len(results))
	for _, r := range results {
		if r.Similarity < ix.threshold {
			continue
		}
		page, _ := strconv.Atoi(r.Metadata[MetaPage])
		passages = append(passages, models.Passage{
			Source:     r.Metadata[MetaSource],
			Page:       page,
			Text:       r.Content,
			Similarity: r.Similarity,
		})
	}
	observability.RetrievedPassages.Observe(float64(len(passages)))
	return passages
}
