package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/trafficlaw/internal/models"
	"github.com/xhad/trafficlaw/pkg/rag"
	"github.com/xhad/trafficlaw/pkg/session"
)

type cannedPipeline struct {
	reply     string
	questions []string
}

func (p *cannedPipeline) Invoke(ctx context.Context, question string, history []models.Message) (rag.State, error) {
	p.questions = append(p.questions, question)
	return rag.State{OriginalQuestion: question, Question: question, Generation: p.reply}, nil
}

func (p *cannedPipeline) Stream(ctx context.Context, question string, history []models.Message, onChunk func(string) error) (rag.State, error) {
	state, err := p.Invoke(ctx, question, history)
	if err != nil {
		return state, err
	}
	return state, onChunk(state.Generation)
}

// brokenStore reads fine but cannot be written to.
type brokenStore struct {
	*session.MemoryStore
}

func (s brokenStore) Append(ctx context.Context, id string, msgs ...models.Message) error {
	return errors.New("history unavailable")
}

func (s brokenStore) Clear(ctx context.Context, id string) error {
	return errors.New("history unavailable")
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	output, noColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	t.Cleanup(func() { color.Output, color.NoColor = output, noColor })
	return &buf
}

func TestChatSessionRecordsTurns(t *testing.T) {
	out := captureOutput(t)
	pipeline := &cannedPipeline{reply: "Phạt tiền từ 4 đến 6 triệu đồng."}
	history := session.NewMemoryStore()
	c := &chatSession{pipeline: pipeline, history: history, maxTurns: 3}

	err := c.run(context.Background(), strings.NewReader("Vượt đèn đỏ?\n\nexit\nKhông tới đây\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Vượt đèn đỏ?"}, pipeline.questions)
	assert.Contains(t, out.String(), "Trợ lý: Phạt tiền từ 4 đến 6 triệu đồng.")

	turns, err := history.History(context.Background(), cliSession, 3)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestChatSessionReportsHistoryErrors(t *testing.T) {
	out := captureOutput(t)
	c := &chatSession{
		pipeline:  &cannedPipeline{reply: "ok"},
		history:   brokenStore{session.NewMemoryStore()},
		maxTurns:  3,
		streaming: true,
	}

	err := c.run(context.Background(), strings.NewReader("reset\nVượt đèn đỏ?\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out.String(), "Lỗi: history unavailable"))
	assert.NotContains(t, out.String(), "Đã xoá lịch sử trò chuyện.")
}
