package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var providers = map[string]bool{
	"azure":  true,
	"openai": true,
	"ollama": true,
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	errors = append(errors, validateProvider("llm", c.LLM.Provider, c.LLM.BaseURL, c.LLM.APIKey, c.LLM.Model)...)

	if c.LLM.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must not be negative",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate embedding config
	errors = append(errors, validateProvider("embedding", c.Embedding.Provider, c.Embedding.BaseURL, c.Embedding.APIKey, c.Embedding.Model)...)

	if c.Embedding.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required",
		})
	} else if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if strings.ContainsAny(c.Database.TableName, " ;\"'") || c.Database.TableName == "" {
		errors = append(errors, ValidationError{
			Field:   "database.table_name",
			Message: fmt.Sprintf("invalid table name: %q", c.Database.TableName),
		})
	}

	// Validate retrieval config
	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.MaxHistoryTurns < 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.max_history_turns",
			Message: "max_history_turns must not be negative",
		})
	}

	// Validate ingest config
	for i, doc := range c.Ingest.Documents {
		if doc.Path == "" || doc.SourceTag == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("ingest.documents[%d]", i),
				Message: "document needs both path and source",
			})
		}
	}

	if c.Ingest.Scraper.MaxDepth < 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.scraper.max_depth",
			Message: "max_depth must not be negative",
		})
	}

	if c.Ingest.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate session config
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			errors = append(errors, ValidationError{
				Field:   "session.redis_url",
				Message: "redis_url is required for the redis backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "session.backend",
			Message: fmt.Sprintf("unknown session backend: %s", c.Session.Backend),
		})
	}

	return errors
}

func validateProvider(section, provider, baseURL, apiKey, model string) []ValidationError {
	var errors []ValidationError

	if !providers[provider] {
		return append(errors, ValidationError{
			Field:   section + ".provider",
			Message: fmt.Sprintf("unknown provider: %s", provider),
		})
	}

	if provider == "azure" && baseURL == "" {
		errors = append(errors, ValidationError{
			Field:   section + ".base_url",
			Message: "Azure OpenAI endpoint is required",
		})
	}

	if baseURL != "" {
		if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   section + ".base_url",
				Message: "invalid base URL",
			})
		}
	}

	if provider != "ollama" && apiKey == "" {
		errors = append(errors, ValidationError{
			Field:   section + ".api_key",
			Message: "API key is required",
		})
	}

	if model == "" {
		errors = append(errors, ValidationError{
			Field:   section + ".model",
			Message: "model is required",
		})
	}

	return errors
}
