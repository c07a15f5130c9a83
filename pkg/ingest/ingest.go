// Package ingest builds the vector store from the configured legal documents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/internal/types"
	"github.com/xhad/trafficlaw/pkg/processor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoChunks = errors.New("no chunks produced from the configured documents")

type IngesterConfig struct {
	Documents   []models.SourceDocument
	BatchSize   int
	Concurrency int
	// OnProgress is called after each stored batch with the number of chunks
	// stored so far and the total.
	OnProgress func(done, total int)
	Logger     *zap.Logger
}

type Ingester struct {
	config   IngesterConfig
	loader   types.Loader
	chunker  types.Chunker
	embedder types.Embedder
	store    types.VectorStore
}

func NewWithConfig(config IngesterConfig, loader types.Loader, chunker types.Chunker, embedder types.Embedder, store types.VectorStore) (*Ingester, error) {
	if loader == nil || chunker == nil || embedder == nil || store == nil {
		return nil, errors.New("ingester needs a loader, a chunker, an embedder and a store")
	}
	if len(config.Documents) == 0 {
		return nil, errors.New("no documents configured")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Ingester{
		config:   config,
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
	}, nil
}

// Chunks loads and chunks every configured document, keeping document order,
// and assigns ids across the combined list.
func (in *Ingester) Chunks(ctx context.Context) ([]models.Chunk, error) {
	perDoc := make([][]models.Chunk, len(in.config.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.config.Concurrency)
	for i, doc := range in.config.Documents {
		g.Go(func() error {
			paragraphs, err := in.loader.Paragraphs(gctx, doc.Path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", doc.Path, err)
			}
			perDoc[i] = in.chunker.Chunk(paragraphs, doc.Path, doc.SourceTag)
			in.config.Logger.Info("chunked document",
				zap.String("file", filepath.Base(doc.Path)),
				zap.String("source", doc.SourceTag),
				zap.Int("paragraphs", len(paragraphs)),
				zap.Int("chunks", len(perDoc[i])),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, c := range perDoc {
		chunks = append(chunks, c...)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	processor.AssignIDs(chunks)
	return chunks, nil
}

// Run replaces the store contents with freshly embedded chunks and returns the
// number of chunks the store holds afterwards.
func (in *Ingester) Run(ctx context.Context) (int, error) {
	chunks, err := in.Chunks(ctx)
	if err != nil {
		return 0, err
	}
	in.config.Logger.Info("total chunks", zap.Int("count", len(chunks)))

	if err := in.store.Reset(ctx); err != nil {
		return 0, fmt.Errorf("failed to reset store: %w", err)
	}

	for start := 0; start < len(chunks); start += in.config.BatchSize {
		end := start + in.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := in.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if err := in.store.Store(ctx, batch, vectors); err != nil {
			return 0, fmt.Errorf("failed to store chunks %d-%d: %w", start, end, err)
		}

		if in.config.OnProgress != nil {
			in.config.OnProgress(end, len(chunks))
		}
	}

	count, err := in.store.Count(ctx)
	if err != nil {
		return 0, err
	}
	in.config.Logger.Info("ingest finished", zap.Int("stored", count))
	return count, nil
}
