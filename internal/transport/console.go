package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// Handler turns one inbound message into a reply.
type Handler interface {
	Handle(ctx context.Context, in model.QueryInput) model.Reply
}

// Console is a line-based transport for local runs. Every line is one
// message from the default identity; a line starting with "@name " is sent
// as identity name instead.
type Console struct {
	in       io.Reader
	out      io.Writer
	identity string
	markdown bool
	mu       sync.Mutex
}

func NewConsole(in io.Reader, out io.Writer, identity string, markdown bool) *Console {
	return &Console{in: in, out: out, identity: identity, markdown: markdown}
}

func (c *Console) Send(_ context.Context, identity string, text string, mode model.RenderMode) error {
	if mode == model.RenderMarkdown && !c.markdown {
		return ErrFormattingRejected
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s]\n%s\n\n", identity, text)
	return err
}

// Run reads messages until the input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context, h Handler) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		identity, text := c.parseLine(scanner.Text())
		if text == "" {
			continue
		}
		reply := h.Handle(ctx, model.QueryInput{Identity: identity, Query: text})
		if err := Deliver(ctx, c, identity, reply); err != nil {
			logx.Error().Err(err).Str("identity", identity).Msg("failed to deliver reply")
		}
	}
	return scanner.Err()
}

func (c *Console) parseLine(line string) (string, string) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "@") {
		if id, text, ok := strings.Cut(line[1:], " "); ok && id != "" {
			return id, strings.TrimSpace(text)
		}
	}
	return c.identity, line
}

var _ Sender = (*Console)(nil)
