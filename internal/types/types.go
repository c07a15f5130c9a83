package types

import (
	"context"

	"github.com/xhad/trafficlaw/internal/models"
)

// Core interfaces
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Query(ctx context.Context, embedding []float32, limit int) ([]models.RetrievedChunk, error)
}

type VectorStore interface {
	Searcher
	Reset(ctx context.Context) error
	Store(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Count(ctx context.Context) (int, error)
	Close()
}

type Chunker interface {
	Chunk(paragraphs []string, filePath, sourceTag string) []models.Chunk
}

type Loader interface {
	Paragraphs(ctx context.Context, path string) ([]string, error)
}
