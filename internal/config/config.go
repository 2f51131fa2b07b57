package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrInvalidChunking = errors.New("chunk_overlap must be smaller than chunk_size")

// LLMConfig holds connection details for one external model endpoint.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "ollama"
	BaseURL   string `yaml:"base_url"`
	Key       string `yaml:"key"`
	Model     string `yaml:"model"`
	ModelPath string `yaml:"model_path"` // local artifact; missing file forces demo mode
}

// RAGConfig holds chunking and retrieval parameters.
type RAGConfig struct {
	ChunkSize      int      `yaml:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap"`
	RetrievalK     int      `yaml:"retrieval_k"`
	ScoreThreshold *float64 `yaml:"score_threshold"`
	IndexPath      string   `yaml:"index_path"`
}

type Config struct {
	RAG      RAGConfig `yaml:"rag"`
	EmbedLLM LLMConfig `yaml:"embed_llm"`
	GenLLM   LLMConfig `yaml:"gen_llm"`
	LogLevel string    `yaml:"log_level"`
}

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultRetrievalK   = 5
	defaultIndexPath    = "./data/index.gob"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
		// An explicitly configured overlap survives size defaulting;
		// Validate still rejects it if it reaches the default size.
		if c.RAG.ChunkOverlap == 0 {
			c.RAG.ChunkOverlap = defaultChunkOverlap
		}
	}
	if c.RAG.RetrievalK == 0 {
		c.RAG.RetrievalK = defaultRetrievalK
	}
	if c.RAG.IndexPath == "" {
		c.RAG.IndexPath = defaultIndexPath
	}
}

// applyEnv lets environment variables override file values, matching the
// deployment habit of keeping keys out of the yaml file.
func (c *Config) applyEnv() {
	if v := os.Getenv("EMBED_LLM_KEY"); v != "" {
		c.EmbedLLM.Key = v
	}
	if v := os.Getenv("GEN_LLM_KEY"); v != "" {
		c.GenLLM.Key = v
	}
	if v := os.Getenv("INDEX_PATH"); v != "" {
		c.RAG.IndexPath = v
	}
	if v := os.Getenv("RETRIEVAL_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.RAG.RetrievalK = k
		}
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.ChunkOverlap < 0 {
		return fmt.Errorf("%w: negative overlap %d", ErrInvalidChunking, c.RAG.ChunkOverlap)
	}
	return nil
}
