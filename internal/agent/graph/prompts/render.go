package prompts

import (
	"context"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/observers"
)

// render formats a single message template through the Eino prompt component
// so prompt callbacks fire for every rendering.
func render(ctx context.Context, name string, format schema.FormatType, tpl schema.MessagesTemplate, vars map[string]any) (string, error) {
	ctx = einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "DefaultChatTemplate",
		Component: components.ComponentOfPrompt,
	}, observers.NewPromptCallbacks())

	msgs, err := prompt.FromMessages(format, tpl).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s render: empty result", name)
	}
	return msgs[0].Content, nil
}
