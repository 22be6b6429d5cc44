package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	Backend string `envconfig:"CONVERSATION_BACKEND" default:"memory"`
	// HistoryLimit is the number of trailing entries kept after the pinned system prompt.
	HistoryLimit int           `envconfig:"CONVERSATION_HISTORY_LIMIT" default:"10"`
	TTL          time.Duration `envconfig:"CONVERSATION_TTL" default:"0s"`
}

type GenerationModelConfig struct {
	Provider    string        `envconfig:"GENERATION_PROVIDER" default:"groq"`
	Model       string        `envconfig:"GENERATION_MODEL" default:"llama-3.3-70b-versatile"`
	MaxTokens   int           `envconfig:"GENERATION_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"GENERATION_TEMPERATURE" default:"0.3"`
	Timeout     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`
}

type NLUModelConfig struct {
	Mode string `envconfig:"NLU_MODE" default:"rules"`
	// Model falls back to the generation model when empty.
	Model       string        `envconfig:"NLU_MODEL"`
	MaxTokens   int           `envconfig:"NLU_MAX_TOKENS" default:"256"`
	Temperature float32       `envconfig:"NLU_TEMPERATURE" default:"0"`
	Timeout     time.Duration `envconfig:"NLU_TIMEOUT" default:"10s"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"น้องไฟดี"`
	SystemName    string `envconfig:"PROMPT_SYSTEM_NAME" default:"Smart ATS"`
	Utility       string `envconfig:"PROMPT_UTILITY" default:"กฟภ. (PEA)"`
}

type TelemetryConfig struct {
	Enabled bool          `envconfig:"TELEMETRY_ENABLED" default:"false"`
	Key     string        `envconfig:"TELEMETRY_KEY" default:"smartats:telemetry:latest"`
	Timeout time.Duration `envconfig:"TELEMETRY_TIMEOUT" default:"2s"`
}
