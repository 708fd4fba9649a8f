// Package config loads engine settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Analyzer selection values for INNERBLOOM_ANALYZER.
const (
	AnalyzerLexicon = "lexicon"
	AnalyzerOpenAI  = "openai"
)

// Config holds everything the engine needs at startup.
type Config struct {
	// DBPath is the SQLite file holding cores, the transition log, and the
	// pending-entry queue. KeyFile protects queued entry text; it is created
	// on first use.
	DBPath  string `env:"INNERBLOOM_DB" envDefault:"innerbloom.db"`
	KeyFile string `env:"INNERBLOOM_KEY_FILE" envDefault:"innerbloom.key"`

	// Analyzer picks the signal source: lexicon runs offline, openai needs
	// an API key.
	Analyzer     string `env:"INNERBLOOM_ANALYZER" envDefault:"lexicon"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	Model        string `env:"INNERBLOOM_MODEL" envDefault:"gpt-5-mini"`

	QueueMaxAttempts int           `env:"INNERBLOOM_QUEUE_MAX_ATTEMPTS" envDefault:"5"`
	QueueBatch       int           `env:"INNERBLOOM_QUEUE_BATCH" envDefault:"50"`
	DrainInterval    time.Duration `env:"INNERBLOOM_DRAIN_INTERVAL" envDefault:"2m"`

	Debug bool `env:"INNERBLOOM_DEBUG" envDefault:"false"`
}

// Load reads .env if present, then the environment. Validation failures name
// the variable that needs fixing.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Analyzer {
	case AnalyzerLexicon, AnalyzerOpenAI:
	default:
		return fmt.Errorf("INNERBLOOM_ANALYZER must be %q or %q, got %q", AnalyzerLexicon, AnalyzerOpenAI, c.Analyzer)
	}
	if c.Analyzer == AnalyzerOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when INNERBLOOM_ANALYZER=%s", AnalyzerOpenAI)
	}
	if c.DrainInterval <= 0 {
		return fmt.Errorf("INNERBLOOM_DRAIN_INTERVAL must be positive, got %s", c.DrainInterval)
	}
	return nil
}
