// Package rag runs the fixed question answering flow: condense the question
// against chat history, retrieve passages, then generate a grounded answer.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/internal/types"
	"github.com/xhad/trafficlaw/pkg/llm"
	"go.uber.org/zap"
)

// NoDocumentsMessage is returned as the generation when retrieval finds nothing.
const NoDocumentsMessage = "Rất tiếc, tôi không tìm thấy thông tin nào liên quan trong kho dữ liệu để trả lời câu hỏi của bạn."

const defaultTopK = 8

var ErrEmptyQuestion = errors.New("question is empty")

// State is what flows through the pipeline and is returned to the caller.
type State struct {
	OriginalQuestion string
	Question         string
	Generation       string
	Documents        []models.RetrievedChunk
	ChatHistory      []models.Message
}

type PipelineConfig struct {
	TopK   int
	Logger *zap.Logger
}

type Pipeline struct {
	engine   *llm.ChatEngine
	embedder types.Embedder
	searcher types.Searcher
	topK     int
	logger   *zap.Logger
}

func NewWithConfig(config PipelineConfig, engine *llm.ChatEngine, embedder types.Embedder, searcher types.Searcher) (*Pipeline, error) {
	if engine == nil || embedder == nil || searcher == nil {
		return nil, errors.New("pipeline needs a chat engine, an embedder and a searcher")
	}
	if config.TopK <= 0 {
		config.TopK = defaultTopK
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Pipeline{
		engine:   engine,
		embedder: embedder,
		searcher: searcher,
		topK:     config.TopK,
		logger:   config.Logger,
	}, nil
}

// Invoke answers question in the context of history.
func (p *Pipeline) Invoke(ctx context.Context, question string, history []models.Message) (State, error) {
	return p.run(ctx, question, history, nil)
}

// Stream is Invoke with the answer passed to onChunk as it is generated. When
// nothing is retrieved the fixed reply is sent as a single chunk.
func (p *Pipeline) Stream(ctx context.Context, question string, history []models.Message, onChunk func(string) error) (State, error) {
	if onChunk == nil {
		return State{}, errors.New("stream callback is required")
	}
	return p.run(ctx, question, history, onChunk)
}

func (p *Pipeline) run(ctx context.Context, question string, history []models.Message, onChunk func(string) error) (State, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return State{}, ErrEmptyQuestion
	}

	state := State{
		OriginalQuestion: question,
		ChatHistory:      history,
	}

	start := time.Now()
	condensed, err := p.engine.Condense(ctx, question, history)
	if err != nil {
		return state, err
	}
	state.Question = condensed
	p.logger.Debug("condensed question",
		zap.String("original", question),
		zap.String("question", condensed),
		zap.Duration("took", time.Since(start)),
	)

	start = time.Now()
	if err := p.retrieve(ctx, &state); err != nil {
		return state, err
	}
	p.logger.Debug("retrieved documents",
		zap.Int("count", len(state.Documents)),
		zap.Duration("took", time.Since(start)),
	)

	if len(state.Documents) == 0 {
		state.Generation = NoDocumentsMessage
		if onChunk != nil {
			if err := onChunk(NoDocumentsMessage); err != nil {
				return state, err
			}
		}
		return state, nil
	}

	start = time.Now()
	if onChunk != nil {
		state.Generation, err = p.engine.AnswerStream(ctx, state.OriginalQuestion, state.Documents, history, onChunk)
	} else {
		state.Generation, err = p.engine.Answer(ctx, state.OriginalQuestion, state.Documents, history)
	}
	if err != nil {
		return state, err
	}
	p.logger.Debug("generated answer",
		zap.Int("length", len(state.Generation)),
		zap.Duration("took", time.Since(start)),
	)

	return state, nil
}

func (p *Pipeline) retrieve(ctx context.Context, state *State) error {
	vector, err := p.embedder.EmbedQuery(ctx, state.Question)
	if err != nil {
		return fmt.Errorf("failed to embed question: %w", err)
	}

	docs, err := p.searcher.Query(ctx, vector, p.topK)
	if err != nil {
		return fmt.Errorf("failed to retrieve documents: %w", err)
	}
	state.Documents = docs
	return nil
}
