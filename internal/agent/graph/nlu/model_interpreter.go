package nlu

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/parsers"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/prompts"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

const (
	IntentBill             = "bill_calculation"
	IntentAgriculturalPump = "agricultural_pump"
	IntentTimeOfUse        = "time_of_use"
	IntentWelfare          = "welfare_subsidy"
	IntentGeneral          = "general_question"

	EntityUnits     = "units"
	EntityPeakUnits = "peak_units"

	minConfidence = 0.5
)

// Intents is the closed set the NLU prompt offers to the model.
var Intents = []string{IntentBill, IntentAgriculturalPump, IntentTimeOfUse, IntentWelfare, IntentGeneral}

// ModelInterpreter asks a language model for tuples and falls back to the
// rule interpreter whenever the call or the parse fails.
type ModelInterpreter struct {
	gen      model.Generator
	fallback model.Interpreter
}

func NewModelInterpreter(gen model.Generator, fallback model.Interpreter) *ModelInterpreter {
	if fallback == nil {
		fallback = NewRuleInterpreter()
	}
	return &ModelInterpreter{gen: gen, fallback: fallback}
}

func (m *ModelInterpreter) Interpret(ctx context.Context, text string) (model.Interpretation, error) {
	system, err := prompts.RenderNLUSystem(ctx, Intents)
	if err != nil {
		logx.Warn().Err(err).Msg("nlu prompt failed, using rules")
		return m.fallback.Interpret(ctx, text)
	}

	raw, err := m.gen.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(text),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("nlu model failed, using rules")
		return m.fallback.Interpret(ctx, text)
	}

	ext, err := parsers.ParseExtraction(raw)
	if err != nil || (len(ext.Entities) == 0 && len(ext.Intents) == 0 && len(ext.Errors) > 0) {
		logx.Warn().Err(err).Str("raw", raw).Msg("nlu output unusable, using rules")
		return m.fallback.Interpret(ctx, text)
	}
	if len(ext.Errors) > 0 {
		logx.Debug().Strs("parsing_errors", ext.Errors).Msg("nlu tuples skipped")
	}
	return fromExtraction(ext), nil
}

func fromExtraction(ext *parsers.Extraction) model.Interpretation {
	var out model.Interpretation
	if e, ok := ext.Entity(EntityUnits); ok && e.Confidence >= minConfidence {
		if v, ok := parseNumber(e.Value); ok {
			out.Units = &v
		}
	}
	if e, ok := ext.Entity(EntityPeakUnits); ok && e.Confidence >= minConfidence {
		if v, ok := parseNumber(e.Value); ok {
			out.PeakUnits = &v
		}
	}
	switch {
	case ext.HasIntent(IntentAgriculturalPump, minConfidence):
		out.Hint = tariff.HintAgricultural
	case ext.HasIntent(IntentTimeOfUse, minConfidence):
		out.Hint = tariff.HintTimeOfUse
	}
	out.SubsidyEligible = ext.HasIntent(IntentWelfare, minConfidence)
	return out
}

var _ model.Interpreter = (*ModelInterpreter)(nil)
