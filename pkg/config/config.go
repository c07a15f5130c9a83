package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xhad/trafficlaw/internal/models"
	"gopkg.in/yaml.v3"
)

const DefaultAzureAPIVersion = "2023-05-15"

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		APIVersion  string  `yaml:"api_version"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Provider   string `yaml:"provider"`
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		APIVersion string `yaml:"api_version"`
		Model      string `yaml:"model"`
		BatchSize  int    `yaml:"batch_size"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Retrieval struct {
		TopK            int `yaml:"top_k"`
		MaxHistoryTurns int `yaml:"max_history_turns"`
	} `yaml:"retrieval"`

	Ingest struct {
		Documents []models.SourceDocument `yaml:"documents"`
		Scraper   struct {
			MaxDepth  int           `yaml:"max_depth"`
			RateLimit float64       `yaml:"rate_limit"`
			Timeout   time.Duration `yaml:"timeout"`
		} `yaml:"scraper"`
	} `yaml:"ingest"`

	Session struct {
		Backend  string        `yaml:"backend"`
		RedisURL string        `yaml:"redis_url"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Server struct {
		Port      string `yaml:"port"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/trafficlaw/config.yaml"),
			"/etc/trafficlaw/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	config.Server.Streaming = true
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyDefaults(config)
	mergeWithEnv(config)

	return config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	config.Server.Streaming = true
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "azure"
	}
	if config.LLM.APIVersion == "" {
		config.LLM.APIVersion = DefaultAzureAPIVersion
	}
	if config.LLM.Provider == "ollama" {
		if config.LLM.BaseURL == "" {
			config.LLM.BaseURL = "http://localhost:11434"
		}
		if config.LLM.Model == "" {
			config.LLM.Model = "mistral"
		}
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = config.LLM.Provider
	}
	if config.Embedding.APIVersion == "" {
		config.Embedding.APIVersion = DefaultAzureAPIVersion
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 16
	}
	if config.Embedding.Provider == "ollama" {
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = "http://localhost:11434"
		}
		if config.Embedding.Model == "" {
			config.Embedding.Model = "nomic-embed-text:latest"
		}
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "traffic_law_2024"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 8
	}
	if config.Retrieval.MaxHistoryTurns == 0 {
		config.Retrieval.MaxHistoryTurns = 3
	}

	if len(config.Ingest.Documents) == 0 {
		config.Ingest.Documents = []models.SourceDocument{
			{Path: filepath.Join("documents", "Law-36-2024-QH15.docx"), SourceTag: "law_36_2024"},
			{Path: filepath.Join("documents", "1682024NĐ-CP.docx"), SourceTag: "nd_168_2024"},
		}
	}
	if config.Ingest.Scraper.RateLimit == 0 {
		config.Ingest.Scraper.RateLimit = 1.0
	}
	if config.Ingest.Scraper.Timeout == 0 {
		config.Ingest.Scraper.Timeout = 30 * time.Second
	}

	if config.Session.Backend == "" {
		config.Session.Backend = "memory"
	}
	if config.Session.TTL == 0 {
		config.Session.TTL = 24 * time.Hour
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("AZURE_OPENAI_LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if endpoint := os.Getenv("AZURE_OPENAI_LLM_ENDPOINT"); endpoint != "" {
		config.LLM.BaseURL = endpoint
	}
	if model := os.Getenv("AZURE_OPENAI_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("AZURE_OPENAI_EMBEDDING_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if endpoint := os.Getenv("AZURE_OPENAI_EMBEDDING_ENDPOINT"); endpoint != "" {
		config.Embedding.BaseURL = endpoint
	}
	if model := os.Getenv("AZURE_OPENAI_EMBED_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.Provider == "ollama" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Session.RedisURL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
