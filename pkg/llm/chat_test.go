package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/pkg/llm"
)

// fakeModel records every request and replies with the next queued answer.
type fakeModel struct {
	replies  []string
	err      error
	requests [][]llms.MessageContent
	options  []llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.requests = append(m.requests, messages)
	m.options = append(m.options, opts)

	if m.err != nil {
		return nil, m.err
	}

	reply := ""
	if len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
	}

	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(reply, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(t *testing.T, msg llms.MessageContent) string {
	t.Helper()
	require.Len(t, msg.Parts, 1)
	part, ok := msg.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

var docs = []models.RetrievedChunk{
	{
		Chunk: models.Chunk{
			ID:      "law_36_2024-art10-clause1-3",
			Content: "Người lái xe phải đi bên phải.",
			Metadata: models.ChunkMetadata{
				SourceFile:    "Law-36-2024-QH15.docx",
				ArticleNumber: 10,
			},
		},
		Score: 0.91,
	},
	{
		Chunk: models.Chunk{
			ID:      "nd_168_2024-art6-clause2-40",
			Content: "Phạt tiền từ 400.000 đồng.",
			Metadata: models.ChunkMetadata{
				SourceFile:    "1682024NĐ-CP.docx",
				ArticleNumber: 6,
			},
		},
		Score: 0.87,
	},
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, &fakeModel{})
	assert.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: 3}, &fakeModel{})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1}, &fakeModel{})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{}, nil)
	assert.Error(t, err)
}

func TestCondense(t *testing.T) {
	t.Run("no history skips the model", func(t *testing.T) {
		model := &fakeModel{}
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
		require.NoError(t, err)

		question, err := engine.Condense(context.Background(), "Mức phạt vượt đèn đỏ?", nil)
		require.NoError(t, err)
		assert.Equal(t, "Mức phạt vượt đèn đỏ?", question)
		assert.Empty(t, model.requests)
	})

	t.Run("rewrites with history", func(t *testing.T) {
		model := &fakeModel{replies: []string{"  Mức phạt xe máy vượt đèn đỏ là bao nhiêu?\n"}}
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
		require.NoError(t, err)

		history := []models.Message{
			models.HumanMessage("Xe máy vượt đèn đỏ có bị phạt không?"),
			models.AIMessage("Có."),
		}
		question, err := engine.Condense(context.Background(), "Bao nhiêu tiền?", history)
		require.NoError(t, err)
		assert.Equal(t, "Mức phạt xe máy vượt đèn đỏ là bao nhiêu?", question)

		require.Len(t, model.requests, 1)
		prompt := textOf(t, model.requests[0][0])
		assert.Contains(t, prompt, "human: Xe máy vượt đèn đỏ có bị phạt không?\nai: Có.")
		assert.Contains(t, prompt, "Câu hỏi mới: Bao nhiêu tiền?")
		assert.Equal(t, 0.0, model.options[0].Temperature)
	})

	t.Run("empty rewrite falls back", func(t *testing.T) {
		model := &fakeModel{replies: []string{"   "}}
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
		require.NoError(t, err)

		question, err := engine.Condense(context.Background(), "Bao nhiêu tiền?", []models.Message{models.HumanMessage("x")})
		require.NoError(t, err)
		assert.Equal(t, "Bao nhiêu tiền?", question)
	})

	t.Run("model error", func(t *testing.T) {
		model := &fakeModel{err: errors.New("rate limited")}
		engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
		require.NoError(t, err)

		_, err = engine.Condense(context.Background(), "q", []models.Message{models.HumanMessage("x")})
		assert.ErrorContains(t, err, "rate limited")
	})
}

func TestAnswer(t *testing.T) {
	model := &fakeModel{replies: []string{"Phải đi bên phải."}}
	engine, err := llm.NewWithConfig(llm.ChatConfig{MaxTokens: 500}, model)
	require.NoError(t, err)

	history := []models.Message{
		models.HumanMessage("Chào"),
		models.AIMessage("Xin chào!"),
	}
	answer, err := engine.Answer(context.Background(), "Đi bên nào?", docs, history)
	require.NoError(t, err)
	assert.Equal(t, "Phải đi bên phải.", answer)

	require.Len(t, model.requests, 1)
	messages := model.requests[0]
	require.Len(t, messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	assert.Contains(t, textOf(t, messages[0]), "CHỈ được trả lời dựa trên NGỮ CẢNH")
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[3].Role)
	assert.Equal(t, "Ngữ cảnh:\n"+llm.FormatDocs(docs)+"\n---\nCâu hỏi: Đi bên nào?", textOf(t, messages[3]))
	assert.Equal(t, 500, model.options[0].MaxTokens)
}

func TestAnswerWithoutTokenLimit(t *testing.T) {
	model := &fakeModel{replies: []string{"Phạt tiền từ 400.000 đồng."}}
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), "Mức phạt?", docs, nil)
	require.NoError(t, err)
	require.Len(t, model.options, 1)
	assert.Zero(t, model.options[0].MaxTokens)
	assert.Zero(t, model.options[0].Temperature)
}

func TestAnswerStream(t *testing.T) {
	model := &fakeModel{replies: []string{"Phạt tiền từ 400.000 đồng."}}
	engine, err := llm.NewWithConfig(llm.ChatConfig{}, model)
	require.NoError(t, err)

	var chunks []string
	answer, err := engine.AnswerStream(context.Background(), "Mức phạt?", docs, nil, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Phạt tiền từ 400.000 đồng.", answer)
	assert.Equal(t, answer, strings.Join(chunks, ""))
	assert.Greater(t, len(chunks), 1)
}

func TestFormatDocs(t *testing.T) {
	expected := "Nguồn: Law-36-2024-QH15.docx - Điều 10\nNgười lái xe phải đi bên phải." +
		"\n\n---\n\n" +
		"Nguồn: 1682024NĐ-CP.docx - Điều 6\nPhạt tiền từ 400.000 đồng."
	assert.Equal(t, expected, llm.FormatDocs(docs))
	assert.Equal(t, "", llm.FormatDocs(nil))
}

func TestFormatSources(t *testing.T) {
	sources := llm.FormatSources(append(docs, docs[0]))
	assert.Equal(t, "\nNguồn:\nLaw-36-2024-QH15.docx - Điều 10\n1682024NĐ-CP.docx - Điều 6", sources)
	assert.Empty(t, llm.FormatSources(nil))
}
