package main

import (
	"context"
	"fmt"

	"github.com/xhad/trafficlaw/pkg/llm"
	"github.com/xhad/trafficlaw/pkg/rag"
	"github.com/xhad/trafficlaw/pkg/session"
	"github.com/xhad/trafficlaw/pkg/store"
)

func newEmbedder() (*llm.Embedder, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		ProviderConfig: llm.ProviderConfig{
			Provider:   cfg.Embedding.Provider,
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			APIVersion: cfg.Embedding.APIVersion,
			Model:      cfg.Embedding.Model,
		},
		BatchSize: cfg.Embedding.BatchSize,
		Dimension: cfg.Database.VectorDim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return embedder, nil
}

func newVectorStore(ctx context.Context) (*store.VectorStore, error) {
	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString:  cfg.Database.URL,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		BatchSize:   cfg.Database.BatchSize,
		SearchLimit: cfg.Retrieval.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return vectorStore, nil
}

func newPipeline(vectorStore *store.VectorStore) (*rag.Pipeline, error) {
	model, err := llm.NewModel(llm.ProviderConfig{
		Provider:   cfg.LLM.Provider,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		APIVersion: cfg.LLM.APIVersion,
		Model:      cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}

	return rag.NewWithConfig(rag.PipelineConfig{
		TopK:   cfg.Retrieval.TopK,
		Logger: logger.Named("rag"),
	}, chatEngine, embedder, vectorStore)
}

func newSessionStore(ctx context.Context) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "redis":
		sessions, err := session.NewRedisStore(ctx, session.RedisStoreConfig{
			URL: cfg.Session.RedisURL,
			TTL: cfg.Session.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return sessions, func() { sessions.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
