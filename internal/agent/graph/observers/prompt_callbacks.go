package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// newPromptHandler logs template renders by name. Rendered text can carry
// user data, so only sizes are logged.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			ev := logx.Debug().Str("template", info.Name).Str("format", info.Type)
			if output != nil {
				size := 0
				for _, m := range output.Result {
					if m != nil {
						size += len(m.Content)
					}
				}
				ev = ev.Int("messages", len(output.Result)).Int("bytes", size)
			}
			ev.Msg("template rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("template", info.Name).Msg("template render failed")
			return ctx
		},
	}
}
