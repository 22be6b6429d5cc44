package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestPricingCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	cost := ResolvePricing("llama-3.3-70b-versatile").Cost(usage)
	assert.Equal(t, "0.59", cost.Input.String())
	assert.Equal(t, "0.395", cost.Output.String())
	assert.Equal(t, "0.985", cost.Total().String())
}

func TestPricingCostUnknownModelAndNilUsage(t *testing.T) {
	cost := ResolvePricing("mystery").Cost(&schema.TokenUsage{PromptTokens: 10, CompletionTokens: 3})
	assert.True(t, cost.Total().IsZero())

	cost = ResolvePricing("gemini-2.5-flash").Cost(nil)
	assert.True(t, cost.Total().IsZero())
}

func TestSessionPinned(t *testing.T) {
	var nilSession *Session
	assert.Nil(t, nilSession.Pinned())

	s := &Session{Messages: []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("hi")}}
	assert.Equal(t, "sys", s.Pinned().Content)
}
