// Package transport delivers rendered replies to chat users.
package transport

import (
	"context"
	"errors"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// ErrFormattingRejected is returned by a Sender that cannot display the
// requested render mode. Deliver retries once as plain text.
var ErrFormattingRejected = errors.New("formatting rejected")

// Sender posts text to one identity on a message transport.
type Sender interface {
	Send(ctx context.Context, identity string, text string, mode model.RenderMode) error
}

// Deliver sends reply in its own mode and falls back to plain text when the
// transport rejects the formatting.
func Deliver(ctx context.Context, s Sender, identity string, reply model.Reply) error {
	mode := reply.Mode
	if mode == "" {
		mode = model.RenderPlain
	}
	err := s.Send(ctx, identity, reply.Text, mode)
	if err == nil {
		return nil
	}
	if mode != model.RenderPlain && errors.Is(err, ErrFormattingRejected) {
		logx.Warn().Err(err).Str("identity", identity).Msg("formatting rejected, resending as plain text")
		if err := s.Send(ctx, identity, StripMarkdown(reply.Text), model.RenderPlain); err != nil {
			return errx.WrapExternal("transport", err)
		}
		return nil
	}
	return errx.WrapExternal("transport", err)
}
