package generation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// ChatModelConfig holds the credentials and tuning for one chat model.
type ChatModelConfig struct {
	Provider       string
	GeminiAPIKey   string
	GeminiBaseURL  string
	GroqAPIKey     string
	GroqBaseURL    string
	Model          string
	Temperature    float32
	MaxTokens      int
	ThinkingBudget int32
}

// NewChatModel builds the configured backend.
func NewChatModel(ctx context.Context, cfg ChatModelConfig) (einomodel.BaseChatModel, error) {
	switch cfg.Provider {
	case ProviderGemini:
		cm, err := NewGeminiChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return cm, nil
	case ProviderGroq:
		cm, err := NewGroqChatModel(GroqConfig{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// NewGeminiChatModel creates a Gemini chat model through eino-ext.
func NewGeminiChatModel(ctx context.Context, cfg ChatModelConfig) (*gemini.ChatModel, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	geminiCfg := &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	}
	if cfg.ThinkingBudget > 0 {
		geminiCfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(cfg.ThinkingBudget),
		}
	}
	chatModel, err := gemini.NewChatModel(ctx, geminiCfg)
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return chatModel, nil
}
