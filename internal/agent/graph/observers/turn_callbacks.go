package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

type startedAtKey struct{ name string }

// NewTurnCallbacks times the turn graph and each of its lambda nodes.
// Component callbacks (models, prompts) are left to NewAllCallbacks.
func NewTurnCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isTurnComponent(info) {
				return ctx
			}
			return context.WithValue(ctx, startedAtKey{info.Name}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if !isTurnComponent(info) {
				return ctx
			}
			ev := logx.Debug().Str("component", string(info.Component)).Str("name", info.Name)
			if started, ok := ctx.Value(startedAtKey{info.Name}).(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(started))
			}
			ev.Msg("turn step done")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if !isTurnComponent(info) {
				return ctx
			}
			logx.Error().Err(err).Str("component", string(info.Component)).Str("name", info.Name).Msg("turn step failed")
			return ctx
		}).
		Build()
}

func isTurnComponent(info *einocb.RunInfo) bool {
	if info == nil {
		return false
	}
	return info.Component == compose.ComponentOfGraph || info.Component == compose.ComponentOfLambda
}
