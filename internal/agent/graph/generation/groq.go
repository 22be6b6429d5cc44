package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "llama-3.3-70b-versatile"
	groqTimeout        = 60 * time.Second
	maxErrBody         = 512
)

var errStreamingUnsupported = errors.New("groq: streaming is not supported")

// GroqConfig configures the OpenAI-compatible Groq backend.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// GroqChatModel implements eino's BaseChatModel over Groq's
// OpenAI-compatible chat completions endpoint.
type GroqChatModel struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	client      *http.Client
}

func NewGroqChatModel(cfg GroqConfig) (*GroqChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}
	m := &GroqChatModel{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      cfg.HTTPClient,
	}
	if m.baseURL == "" {
		m.baseURL = groqDefaultBaseURL
	}
	if m.model == "" {
		m.model = groqDefaultModel
	}
	if m.client == nil {
		m.client = &http.Client{
			Timeout: groqTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return m, nil
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message      groqMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *GroqChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (outMsg *schema.Message, err error) {
	o := einomodel.GetCommonOptions(&einomodel.Options{
		Model:       &m.model,
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)

	ctx = einocb.OnStart(ctx, &einomodel.CallbackInput{
		Messages: input,
		Config: &einomodel.Config{
			Model:       *o.Model,
			MaxTokens:   *o.MaxTokens,
			Temperature: *o.Temperature,
		},
	})
	defer func() {
		if err != nil {
			_ = einocb.OnError(ctx, err)
		}
	}()

	req := groqRequest{
		Model:       *o.Model,
		Temperature: o.Temperature,
		Stop:        o.Stop,
		Messages:    make([]groqMessage, 0, len(input)),
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, groqMessage{Role: string(msg.Role), Content: msg.Content})
	}

	resp, err := m.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("groq: response has no choices")
	}

	choice := resp.Choices[0]
	outMsg = &schema.Message{
		Role:         schema.Assistant,
		Content:      choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{FinishReason: choice.FinishReason},
	}
	var usage *einomodel.TokenUsage
	if resp.Usage != nil {
		outMsg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		usage = &einomodel.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	_ = einocb.OnEnd(ctx, &einomodel.CallbackOutput{Message: outMsg, TokenUsage: usage})
	return outMsg, nil
}

func (m *GroqChatModel) do(ctx context.Context, req groqRequest) (*groqResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("groq: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("groq: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	httpResp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("groq: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("groq: failed to read response: %w", err)
	}

	var out groqResponse
	decodeErr := json.Unmarshal(respBody, &out)
	if httpResp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("groq: status=%d: %s", httpResp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("groq: status=%d, body=%s", httpResp.StatusCode, truncate(respBody))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("groq: failed to decode response: %w", decodeErr)
	}
	return &out, nil
}

// Stream is not offered; replies are delivered whole.
func (m *GroqChatModel) Stream(ctx context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	_ = einocb.OnError(ctx, errStreamingUnsupported)
	return nil, errStreamingUnsupported
}

func (m *GroqChatModel) GetType() string {
	return "Groq"
}

// IsCallbacksEnabled tells eino this model fires its own callbacks.
func (m *GroqChatModel) IsCallbacksEnabled() bool {
	return true
}

func truncate(b []byte) string {
	if len(b) <= maxErrBody {
		return string(b)
	}
	return string(b[:maxErrBody])
}

var _ einomodel.BaseChatModel = (*GroqChatModel)(nil)
