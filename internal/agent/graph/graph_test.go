package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/conversations"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/nlu"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

var (
	bangkok    = time.FixedZone("UTC+7", 7*3600)
	inSchedule = time.Date(2026, time.February, 15, 10, 0, 0, 0, bangkok)
	promptCfg  = model.PromptConfig{AssistantName: "น้องไฟดี", SystemName: "Smart ATS", Utility: "กฟภ. (PEA)"}
)

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]*schema.Message
}

func (f *fakeGenerator) Generate(_ context.Context, messages []*schema.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	return f.reply, f.err
}

type fakeTelemetry struct {
	readings map[string]string
	err      error
	block    bool
}

func (f *fakeTelemetry) Latest(ctx context.Context) (map[string]string, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.readings, f.err
}

// corruptOnceStore reports corruption on the first lookup of each identity.
type corruptOnceStore struct {
	*conversations.MemoryStore
	mu     sync.Mutex
	seen   map[string]bool
	resets int
}

func (s *corruptOnceStore) GetOrCreate(ctx context.Context, identity, prompt string) (*model.Session, error) {
	s.mu.Lock()
	first := !s.seen[identity]
	s.seen[identity] = true
	s.mu.Unlock()
	if first {
		return nil, model.ErrSessionCorruption
	}
	return s.MemoryStore.GetOrCreate(ctx, identity, prompt)
}

func (s *corruptOnceStore) Reset(ctx context.Context, identity, prompt string) error {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
	return s.MemoryStore.Reset(ctx, identity, prompt)
}

type harness struct {
	orch  *Orchestrator
	store model.SessionStore
	gen   *fakeGenerator
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	catalog, err := tariff.DefaultCatalog()
	require.NoError(t, err)

	gen := &fakeGenerator{reply: "สวัสดีครับคุณพี่"}
	cfg := Config{
		Engine:      tariff.NewEngine(catalog),
		Sessions:    conversations.NewMemoryStore(conversations.DefaultHistoryLimit),
		Interpreter: nlu.NewRuleInterpreter(),
		Generator:   gen,
		Prompt:      promptCfg,
		Clock:       func() time.Time { return inSchedule },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	orch, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	return &harness{orch: orch, store: cfg.Sessions, gen: gen}
}

func (h *harness) history(t *testing.T, identity string) []*schema.Message {
	t.Helper()
	msgs, err := h.store.History(context.Background(), identity)
	require.NoError(t, err)
	return msgs
}

func TestBuildValidation(t *testing.T) {
	_, err := Build(context.Background(), Config{})
	assert.Error(t, err)
}

func TestBillingTurn(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "เดือนนี้ใช้ไฟ 120 หน่วยครับ"})

	assert.Equal(t, model.RenderMarkdown, reply.Mode)
	assert.Contains(t, reply.Text, "**1.1.1**")
	assert.Contains(t, reply.Text, "**457.16 THB**")
	assert.Empty(t, h.gen.calls, "billing never calls the generation service")

	history := h.history(t, "u1")
	require.Len(t, history, 3)
	assert.Equal(t, h.orch.SystemPrompt(), history[0].Content)
	assert.Equal(t, "เดือนนี้ใช้ไฟ 120 หน่วยครับ", history[1].Content)
	assert.Equal(t, reply.Text, history[2].Content)
}

func TestAgriculturalHint(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "farm", Query: "ประเภท 7 สูบน้ำเกษตร ใช้ไฟ 200 หน่วย"})
	assert.Contains(t, reply.Text, "**7**")
	assert.Contains(t, reply.Text, "**714.27 THB**")
}

func TestConversationalTurn(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "ค่า Ft คืออะไรครับ"})
	assert.Equal(t, model.Reply{Text: "สวัสดีครับคุณพี่", Mode: model.RenderMarkdown}, reply)

	require.Len(t, h.gen.calls, 1)
	sent := h.gen.calls[0]
	require.Len(t, sent, 2)
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Contains(t, sent[0].Content, "1-15 (2.3488)")
	assert.Equal(t, "ค่า Ft คืออะไรครับ", sent[1].Content)

	assert.Len(t, h.history(t, "u1"), 3)
}

func TestTelemetryIsTransient(t *testing.T) {
	tel := &fakeTelemetry{readings: map[string]string{"voltage": "229.4"}}
	h := newHarness(t, func(c *Config) {
		c.Telemetry = tel
		c.TelemetryTimeout = time.Second
	})

	h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "ตอนนี้ไฟบ้านเป็นยังไงบ้าง"})

	require.Len(t, h.gen.calls, 1)
	sent := h.gen.calls[0]
	require.Len(t, sent, 3)
	assert.Equal(t, schema.System, sent[1].Role)
	assert.Contains(t, sent[1].Content, "voltage: 229.4")
	assert.Equal(t, schema.User, sent[2].Role)

	for _, m := range h.history(t, "u1") {
		assert.NotContains(t, m.Content, "voltage")
	}
}

func TestTelemetryFailureIsNoData(t *testing.T) {
	for name, tel := range map[string]*fakeTelemetry{
		"error":   {err: errors.New("redis down")},
		"timeout": {block: true},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(c *Config) {
				c.Telemetry = tel
				c.TelemetryTimeout = 20 * time.Millisecond
			})
			reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "hello"})
			assert.Equal(t, "สวัสดีครับคุณพี่", reply.Text)
			require.Len(t, h.gen.calls, 1)
			assert.Len(t, h.gen.calls[0], 2)
		})
	}
}

func TestGenerationFailureLeavesHistoryUntouched(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.err = errors.New("503")

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "hello"})

	assert.Equal(t, model.RenderPlain, reply.Mode)
	assert.Contains(t, reply.Text, "น้องไฟดีขัดข้องนิดหน่อย")
	assert.Len(t, h.history(t, "u1"), 1)
}

func TestBillingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input model.QueryInput
		want  string
	}{
		{"negative units", model.QueryInput{Identity: "u1", Query: "-5 หน่วย"}, "ไม่ติดลบ"},
		{"expired schedule", model.QueryInput{Identity: "u1", Query: "ใช้ไฟ 120 หน่วย", BillingDate: time.Date(2026, 10, 18, 9, 0, 0, 0, bangkok)}, "2026-10-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			reply := h.orch.Handle(context.Background(), tt.input)

			assert.Equal(t, model.RenderPlain, reply.Mode)
			assert.Contains(t, reply.Text, tt.want)
			assert.Empty(t, h.gen.calls)
			assert.Len(t, h.history(t, "u1"), 1)
		})
	}
}

func TestFixedBillingDate(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Clock = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, bangkok) }
		c.BillingDate = inSchedule
	})
	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "120 units"})
	assert.Contains(t, reply.Text, "457.16")
}

func TestCorruptedSessionIsReset(t *testing.T) {
	store := &corruptOnceStore{MemoryStore: conversations.NewMemoryStore(conversations.DefaultHistoryLimit), seen: map[string]bool{}}
	h := newHarness(t, func(c *Config) { c.Sessions = store })

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "ใช้ไฟ 120 หน่วย"})

	assert.Contains(t, reply.Text, "457.16")
	assert.Equal(t, 1, store.resets)
	history := h.history(t, "u1")
	require.Len(t, history, 3)
	assert.Equal(t, schema.System, history[0].Role)
}

func TestHistoryStaysBounded(t *testing.T) {
	h := newHarness(t, nil)
	for i := 1; i <= 12; i++ {
		h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: fmt.Sprintf("ใช้ไฟ %d หน่วย", i*10)})
	}

	history := h.history(t, "u1")
	require.Len(t, history, conversations.DefaultHistoryLimit+1)
	assert.Equal(t, h.orch.SystemPrompt(), history[0].Content)
	assert.Equal(t, "ใช้ไฟ 120 หน่วย", history[len(history)-2].Content)
}

func TestIdentitiesAreIsolated(t *testing.T) {
	h := newHarness(t, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			h.orch.Handle(context.Background(), model.QueryInput{Identity: id, Query: "ใช้ไฟ 50 หน่วย"})
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c"} {
		assert.Len(t, h.history(t, id), 3)
	}
}

func TestEmptyQuery(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "   "})
	assert.Contains(t, reply.Text, "ใช้ไฟ 120 หน่วย")
	assert.Empty(t, h.gen.calls)
}

func TestTierRangeQuestionIsConversational(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "อัตรา 1-15 หน่วย คิดยังไงครับ"})

	assert.Equal(t, model.Reply{Text: "สวัสดีครับคุณพี่", Mode: model.RenderMarkdown}, reply)
	require.Len(t, h.gen.calls, 1)
	assert.Len(t, h.history(t, "u1"), 3)
}

func TestExplicitResidentialClassIsAutoClassified(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.orch.Handle(context.Background(), model.QueryInput{Identity: "u1", Query: "ประเภท 1.1.2 ใช้ไฟ 120 หน่วย"})

	assert.Contains(t, reply.Text, "**1.1.1**")
	assert.Contains(t, reply.Text, "**457.16 THB**")
	assert.Empty(t, h.gen.calls)
}
