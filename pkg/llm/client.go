package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ProviderConfig selects the backend that serves chat completions or
// embeddings. For Azure, Model is the deployment name.
type ProviderConfig struct {
	Provider   string // azure, openai or ollama
	BaseURL    string
	APIKey     string
	APIVersion string
	Model      string
}

// NewModel creates the chat model for the configured provider.
func NewModel(config ProviderConfig) (llms.Model, error) {
	switch config.Provider {
	case "azure", "openai":
		return newOpenAI(config)
	case "ollama":
		return newOllama(config)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", config.Provider)
	}
}

func newEmbedderClient(config ProviderConfig) (embeddings.EmbedderClient, error) {
	switch config.Provider {
	case "azure", "openai":
		return newOpenAI(config)
	case "ollama":
		return newOllama(config)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", config.Provider)
	}
}

func newOpenAI(config ProviderConfig) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.Provider == "azure" {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.APIVersion),
		)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", config.Provider, err)
	}
	return client, nil
}

func newOllama(config ProviderConfig) (*ollama.LLM, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	client, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	return client, nil
}
