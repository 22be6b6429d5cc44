package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// newModelHandler logs the shape of every generation request and its reply.
// Only the last user message is logged verbatim; the pinned persona prompt
// and telemetry blocks are summarised by role.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			if input == nil {
				return ctx
			}
			roles := make(map[schema.RoleType]int, 3)
			for _, m := range input.Messages {
				if m != nil {
					roles[m.Role]++
				}
			}
			logx.Debug().
				Str("provider", info.Type).
				Str("model", info.Name).
				Int("system", roles[schema.System]).
				Int("user", roles[schema.User]).
				Int("assistant", roles[schema.Assistant]).
				Str("query", lastUserContent(input.Messages)).
				Msg("generation request")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("provider", info.Type).Str("model", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Int("reply_bytes", len(output.Message.Content))
				if meta := output.Message.ResponseMeta; meta != nil && meta.FinishReason != "" {
					ev = ev.Str("finish_reason", meta.FinishReason)
				}
			}
			if output != nil && output.TokenUsage != nil {
				ev = ev.Int("total_tokens", output.TokenUsage.TotalTokens)
			}
			ev.Msg("generation reply")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("provider", info.Type).Str("model", info.Name).Msg("generation error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if m := msgs[i]; m != nil && m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
