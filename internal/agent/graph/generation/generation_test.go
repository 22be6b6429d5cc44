package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
)

type fakeChatModel struct {
	reply *schema.Message
	err   error
	block bool
	seen  []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.seen = input
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errStreamingUnsupported
}

func TestGeneratorReturnsContent(t *testing.T) {
	reply := schema.AssistantMessage("สวัสดีครับคุณพี่", nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	fake := &fakeChatModel{reply: reply}
	g := NewGenerator(fake, Options{Provider: ProviderGroq, Model: groqDefaultModel, Timeout: time.Second})

	history := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("hi")}
	out, err := g.Generate(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "สวัสดีครับคุณพี่", out)
	assert.Equal(t, history, fake.seen)
}

func TestGeneratorWrapsFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeChatModel
	}{
		{"backend error", &fakeChatModel{err: errors.New("boom")}},
		{"empty reply", &fakeChatModel{reply: schema.AssistantMessage("  ", nil)}},
		{"nil reply", &fakeChatModel{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.fake, Options{Provider: ProviderGemini, Model: "gemini-2.5-flash"})
			_, err := g.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
			require.Error(t, err)
			assert.ErrorIs(t, err, errx.ErrExternalServiceUnavailable)
			assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
		})
	}
}

func TestGeneratorHonoursTimeout(t *testing.T) {
	g := NewGenerator(&fakeChatModel{block: true}, Options{Provider: ProviderGroq, Model: groqDefaultModel, Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := g.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, errx.ErrExternalServiceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGroqChatModelGenerate(t *testing.T) {
	var got groqRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "ยอดสุทธิ 457.16 บาท"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer srv.Close()

	m, err := NewGroqChatModel(GroqConfig{APIKey: "test-key", BaseURL: srv.URL, Temperature: 0.3, MaxTokens: 1024})
	require.NoError(t, err)

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("ค่าไฟ 120 หน่วย"),
	})
	require.NoError(t, err)

	assert.Equal(t, groqDefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, groqMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, "user", got.Messages[1].Role)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 1024, *got.MaxTokens)

	assert.Equal(t, schema.Assistant, out.Role)
	assert.Equal(t, "ยอดสุทธิ 457.16 บาท", out.Content)
	assert.Equal(t, "stop", out.ResponseMeta.FinishReason)
	assert.Equal(t, 150, out.ResponseMeta.Usage.TotalTokens)
}

func TestGroqChatModelOptionOverride(t *testing.T) {
	var got groqRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer srv.Close()

	m, err := NewGroqChatModel(GroqConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, einomodel.WithModel("llama-3.1-8b-instant"))
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.Nil(t, got.MaxTokens)
}

func TestGroqChatModelErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusUnauthorized, `{"error": {"message": "Invalid API Key", "type": "invalid_request_error"}}`, "Invalid API Key"},
		{"plain error", http.StatusBadGateway, `upstream down`, "upstream down"},
		{"no choices", http.StatusOK, `{"choices": []}`, "no choices"},
		{"bad json", http.StatusOK, `{`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, err := NewGroqChatModel(GroqConfig{APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestNewChatModelValidation(t *testing.T) {
	_, err := NewChatModel(context.Background(), ChatModelConfig{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewChatModel(context.Background(), ChatModelConfig{Provider: ProviderGroq})
	assert.Error(t, err, "missing api key")

	_, err = NewChatModel(context.Background(), ChatModelConfig{Provider: ProviderGemini})
	assert.Error(t, err, "missing api key")

	cm, err := NewChatModel(context.Background(), ChatModelConfig{Provider: ProviderGroq, GroqAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GroqChatModel{}, cm)
}

func TestGroqStreamUnsupported(t *testing.T) {
	m, err := NewGroqChatModel(GroqConfig{APIKey: "k"})
	require.NoError(t, err)
	_, err = m.Stream(context.Background(), nil)
	assert.ErrorIs(t, err, errStreamingUnsupported)
}
