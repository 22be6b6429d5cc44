package prompts

import (
	"context"
	_ "embed"
	"strings"

	"github.com/cloudwego/eino/schema"
)

//go:embed template/nlu_prompt.txt
var nluSystemPrompt string

// Tuple delimiters shared with the NLU response parser.
const (
	TupleDelimiter      = "<||>"
	RecordDelimiter     = "##"
	CompletionDelimiter = "<|COMPLETE|>"
)

// RenderNLUSystem renders the extraction prompt for model-backed interpretation.
func RenderNLUSystem(ctx context.Context, intents []string) (string, error) {
	// only known tokens are replaced so tuple parentheses survive untouched
	content := strings.NewReplacer(
		"{TD}", TupleDelimiter,
		"{RD}", RecordDelimiter,
		"{CD}", CompletionDelimiter,
		"{intents}", strings.Join(intents, ", "),
	).Replace(nluSystemPrompt)

	// a placeholder keeps the content out of template formatting
	return render(ctx, "nlu_prompt", schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
		map[string]any{"system_messages": []*schema.Message{schema.SystemMessage(content)}})
}
