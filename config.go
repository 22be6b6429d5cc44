package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/core"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
	pkgredis "github.com/Natthapon12-yod/smartatsai/pkg/redis"
)

// AppConfig defines all configurable parameters of the bot,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM providers
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	GroqAPIKey    string `envconfig:"GROQ_API_KEY"`
	GroqBaseURL   string `envconfig:"GROQ_BASE_URL"`

	// Agent configs
	Generation   model.GenerationModelConfig
	NLU          model.NLUModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Telemetry    model.TelemetryConfig

	// Billing
	TariffFile  string `envconfig:"TARIFF_FILE"`
	BillingDate string `envconfig:"BILLING_DATE"`

	// Transport
	TransportMarkdown bool `envconfig:"TRANSPORT_MARKDOWN" default:"true"`
}

// loadConfig reads .env best-effort, then the process environment, and
// initialises logging.
func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	return &cfg, nil
}

func (c *AppConfig) loadCatalog() (*tariff.Catalog, error) {
	if c.TariffFile == "" {
		return tariff.DefaultCatalog()
	}
	logx.Info().Str("path", c.TariffFile).Msg("loading tariff catalog")
	return tariff.LoadCatalogFile(c.TariffFile)
}

// fixedBillingDate returns the BILLING_DATE override, or zero when unset.
func (c *AppConfig) fixedBillingDate(loc *time.Location) (time.Time, error) {
	return parseDate(c.BillingDate, loc)
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}
