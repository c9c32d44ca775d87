package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Groq     GroqConfig     `yaml:"groq"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Paths    PathsConfig    `yaml:"paths"`
	Batch    BatchConfig    `yaml:"batch"`
}

type GroqConfig struct {
	APIKey       string `yaml:"api_key"`
	ChatModel    string `yaml:"chat_model"`
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`
	RateLimitRPM int    `yaml:"rate_limit_rpm"`
}

type PipelineConfig struct {
	CharBudget      int `yaml:"char_budget"`
	OverlapSegments int `yaml:"overlap_segments"`
	MaxRetries      int `yaml:"max_retries"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Temp   string `yaml:"temp"`
}

type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Default returns a Config with hardcoded defaults.
func Default() *Config {
	return &Config{
		Groq: GroqConfig{
			ChatModel:    "llama-3.3-70b-versatile",
			WhisperModel: "whisper-large-v3",
			Language:     "en",
			RateLimitRPM: 30,
		},
		Pipeline: PipelineConfig{
			CharBudget:      6000,
			OverlapSegments: 2,
			MaxRetries:      3,
		},
		Paths: PathsConfig{
			Output: ".",
			Temp:   os.TempDir(),
		},
		Batch: BatchConfig{
			MaxConcurrent: 2,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills omitted fields with defaults and rejects nonsense values.
func (c *Config) Validate() error {
	if c.Pipeline.CharBudget < 0 {
		return fmt.Errorf("pipeline.char_budget must be positive")
	}
	if c.Pipeline.OverlapSegments < 0 {
		return fmt.Errorf("pipeline.overlap_segments must not be negative")
	}

	def := Default()
	if c.Groq.ChatModel == "" {
		c.Groq.ChatModel = def.Groq.ChatModel
	}
	if c.Groq.WhisperModel == "" {
		c.Groq.WhisperModel = def.Groq.WhisperModel
	}
	if c.Groq.Language == "" {
		c.Groq.Language = def.Groq.Language
	}
	if c.Groq.RateLimitRPM == 0 {
		c.Groq.RateLimitRPM = def.Groq.RateLimitRPM
	}
	if c.Pipeline.CharBudget == 0 {
		c.Pipeline.CharBudget = def.Pipeline.CharBudget
	}
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = def.Pipeline.MaxRetries
	}
	if c.Paths.Output == "" {
		c.Paths.Output = def.Paths.Output
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = def.Paths.Temp
	}
	if c.Batch.MaxConcurrent == 0 {
		c.Batch.MaxConcurrent = def.Batch.MaxConcurrent
	}

	return nil
}

// ResolveAPIKey returns the configured key, falling back to the GROQ_API_KEY
// environment variable.
func (c *Config) ResolveAPIKey() string {
	if c.Groq.APIKey != "" {
		return c.Groq.APIKey
	}
	return os.Getenv("GROQ_API_KEY")
}
