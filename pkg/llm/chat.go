package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/xhad/trafficlaw/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Temperature      float64
	MaxTokens        int // 0 leaves the answer length to the model
	SystemTemplate   string
	ContextTemplate  string // fmt template taking the context then the question
	CondenseTemplate string // Go template with .chat_history and .question
}

// ChatEngine rewrites follow-up questions and answers them from retrieved
// legal passages.
type ChatEngine struct {
	config   ChatConfig
	llm      llms.Model
	condense prompts.PromptTemplate
}

// NewWithConfig creates a new ChatEngine backed by model.
func NewWithConfig(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = defaultContextTemplate
	}
	if config.CondenseTemplate == "" {
		config.CondenseTemplate = defaultCondenseTemplate
	}

	return &ChatEngine{
		config:   config,
		llm:      model,
		condense: prompts.NewPromptTemplate(config.CondenseTemplate, []string{"chat_history", "question"}),
	}, nil
}

// Condense rewrites question into a standalone question using history. With
// no history the question is returned unchanged and the model is not called.
func (ce *ChatEngine) Condense(ctx context.Context, question string, history []models.Message) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	prompt, err := ce.condense.Format(map[string]any{
		"chat_history": FormatHistory(history),
		"question":     question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format condense prompt: %w", err)
	}

	condensed, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, ce.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("condense error: %w", err)
	}

	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return question, nil
	}
	return condensed, nil
}

// Answer generates a response to question grounded in docs.
func (ce *ChatEngine) Answer(ctx context.Context, question string, docs []models.RetrievedChunk, history []models.Message) (string, error) {
	return ce.generate(ctx, ce.messages(question, docs, history))
}

// AnswerStream is Answer with each generated fragment passed to onChunk as it
// arrives. The full answer is returned once generation completes.
func (ce *ChatEngine) AnswerStream(ctx context.Context, question string, docs []models.RetrievedChunk, history []models.Message, onChunk func(string) error) (string, error) {
	return ce.generate(ctx, ce.messages(question, docs, history),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	)
}

func (ce *ChatEngine) messages(question string, docs []models.RetrievedChunk, history []models.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(history)+2)
	content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate))

	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAI {
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	userMessage := fmt.Sprintf(ce.config.ContextTemplate, FormatDocs(docs), question)
	return append(content, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))
}

func (ce *ChatEngine) generate(ctx context.Context, content []llms.MessageContent, extra ...llms.CallOption) (string, error) {
	options := append(ce.callOptions(), extra...)

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", errors.New("chat error: no response from LLM")
	}

	return response.Choices[0].Content, nil
}

func (ce *ChatEngine) callOptions() []llms.CallOption {
	options := []llms.CallOption{llms.WithTemperature(ce.config.Temperature)}
	if ce.config.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(ce.config.MaxTokens))
	}
	return options
}

// FormatDocs renders retrieved chunks as the context block of the prompt.
func FormatDocs(docs []models.RetrievedChunk) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("Nguồn: %s - Điều %d\n%s",
			doc.Metadata.SourceFile, doc.Metadata.ArticleNumber, doc.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// FormatHistory renders history as "type: content" lines.
func FormatHistory(history []models.Message) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// FormatSources lists the distinct articles the answer was drawn from.
func FormatSources(docs []models.RetrievedChunk) string {
	if len(docs) == 0 {
		return ""
	}

	var sources []string
	seen := make(map[string]bool)

	for _, doc := range docs {
		source := fmt.Sprintf("%s - Điều %d", doc.Metadata.SourceFile, doc.Metadata.ArticleNumber)
		if !seen[source] {
			sources = append(sources, source)
			seen[source] = true
		}
	}

	return fmt.Sprintf("\nNguồn:\n%s", strings.Join(sources, "\n"))
}
