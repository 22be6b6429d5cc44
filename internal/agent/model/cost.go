package model

import (
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
)

var perMillion = decimal.NewFromInt(1_000_000)

// Pricing is the USD list price of one generation model per 1M text tokens.
type Pricing struct {
	InputPerM  decimal.Decimal
	OutputPerM decimal.Decimal
}

// Cost is the USD spend of one generation call.
type Cost struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

func (c Cost) Total() decimal.Decimal {
	return c.Input.Add(c.Output)
}

func price(in, out string) Pricing {
	return Pricing{InputPerM: decimal.RequireFromString(in), OutputPerM: decimal.RequireFromString(out)}
}

var modelPricing = map[string]Pricing{
	// Gemini
	"gemini-2.5-flash":      price("0.30", "2.50"),
	"gemini-2.5-flash-lite": price("0.10", "0.40"),
	// Groq
	"llama-3.3-70b-versatile": price("0.59", "0.79"),
	"llama-3.1-8b-instant":    price("0.05", "0.08"),
}

// ResolvePricing looks up the list price of a model. Unknown models are free,
// so their calls still log token counts with a zero cost.
func ResolvePricing(modelName string) Pricing {
	return modelPricing[modelName]
}

// Cost prices the token usage reported by a backend.
func (p Pricing) Cost(usage *schema.TokenUsage) Cost {
	if usage == nil {
		return Cost{Input: decimal.Zero, Output: decimal.Zero}
	}
	return Cost{
		Input:  p.InputPerM.Mul(decimal.NewFromInt(int64(usage.PromptTokens))).Div(perMillion),
		Output: p.OutputPerM.Mul(decimal.NewFromInt(int64(usage.CompletionTokens))).Div(perMillion),
	}
}
