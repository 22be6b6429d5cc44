package conversations

import (
	"github.com/cloudwego/eino/schema"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
)

// DefaultHistoryLimit is the number of trailing entries kept after the pinned one.
const DefaultHistoryLimit = 10

// trimTail evicts the oldest non-pinned entries so that at most limit entries
// follow index 0.
func trimTail(msgs []*schema.Message, limit int) []*schema.Message {
	if limit < 0 || len(msgs) <= limit+1 {
		return msgs
	}
	out := make([]*schema.Message, 0, limit+1)
	out = append(out, msgs[0])
	out = append(out, msgs[len(msgs)-limit:]...)
	return out
}

// validate checks that index 0 is the pinned system entry.
func validate(msgs []*schema.Message) error {
	if len(msgs) == 0 || msgs[0] == nil || msgs[0].Role != schema.System {
		return model.ErrSessionCorruption
	}
	return nil
}

func cloneMessages(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
