package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/observers"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

var errEmptyReply = errors.New("model returned an empty reply")

// Options names the backend for logging and bounds every call.
type Options struct {
	Provider string
	Model    string
	Timeout  time.Duration
}

// Generator sends an ordered history to a chat model and returns its text.
// One attempt per call; any failure is reported as ErrExternalServiceUnavailable.
type Generator struct {
	chatModel einomodel.BaseChatModel
	opts      Options
	pricing   model.Pricing
}

func NewGenerator(chatModel einomodel.BaseChatModel, opts Options) *Generator {
	return &Generator{
		chatModel: chatModel,
		opts:      opts,
		pricing:   model.ResolvePricing(opts.Model),
	}
}

func (g *Generator) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      g.opts.Model,
		Type:      g.opts.Provider,
		Component: components.ComponentOfChatModel,
	}, observers.NewModelCallbacks())

	start := time.Now()
	out, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		logx.Warn().Err(err).
			Str("provider", g.opts.Provider).
			Str("model", g.opts.Model).
			Dur("elapsed", time.Since(start)).
			Msg("generation failed")
		return "", errx.WrapExternal(g.opts.Provider, err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", errx.WrapExternal(g.opts.Provider, errEmptyReply)
	}
	g.logUsage(out, time.Since(start))
	return out.Content, nil
}

// logUsage computes and logs usage cost when the backend reports token usage.
func (g *Generator) logUsage(out *schema.Message, elapsed time.Duration) {
	ev := logx.Info().
		Str("provider", g.opts.Provider).
		Str("model", g.opts.Model).
		Dur("elapsed", elapsed)
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		cost := g.pricing.Cost(usage)
		ev = ev.
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Str("input_cost_usd", cost.Input.StringFixed(6)).
			Str("output_cost_usd", cost.Output.StringFixed(6)).
			Str("total_cost_usd", cost.Total().StringFixed(6))
	}
	ev.Msg("generation usage")
}

var _ model.Generator = (*Generator)(nil)
