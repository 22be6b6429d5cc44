package transport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
)

type sent struct {
	identity string
	text     string
	mode     model.RenderMode
}

type recordingSender struct {
	calls      []sent
	rejectRich bool
	failAlways error
}

func (r *recordingSender) Send(_ context.Context, identity, text string, mode model.RenderMode) error {
	r.calls = append(r.calls, sent{identity, text, mode})
	if r.failAlways != nil {
		return r.failAlways
	}
	if r.rejectRich && mode != model.RenderPlain {
		return ErrFormattingRejected
	}
	return nil
}

func TestDeliverRichMode(t *testing.T) {
	s := &recordingSender{}
	err := Deliver(context.Background(), s, "u1", model.Reply{Text: "**457.16**", Mode: model.RenderMarkdown})
	require.NoError(t, err)
	require.Len(t, s.calls, 1)
	assert.Equal(t, model.RenderMarkdown, s.calls[0].mode)
}

func TestDeliverFallsBackToPlain(t *testing.T) {
	s := &recordingSender{rejectRich: true}
	err := Deliver(context.Background(), s, "u1", model.Reply{Text: "ยอดสุทธิ **457.16 บาท**", Mode: model.RenderMarkdown})
	require.NoError(t, err)
	require.Len(t, s.calls, 2)
	assert.Equal(t, sent{"u1", "ยอดสุทธิ 457.16 บาท", model.RenderPlain}, s.calls[1])
}

func TestDeliverReportsTransportFailure(t *testing.T) {
	s := &recordingSender{failAlways: errors.New("connection reset")}
	err := Deliver(context.Background(), s, "u1", model.Reply{Text: "hi"})
	assert.ErrorIs(t, err, errx.ErrExternalServiceUnavailable)
	require.Len(t, s.calls, 1)
	assert.Equal(t, model.RenderPlain, s.calls[0].mode)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bold", "**Step 6: ยอดสุทธิ** **457.16 THB**", "Step 6: ยอดสุทธิ 457.16 THB"},
		{"heading and paragraph", "# สรุป\n\nใช้ไฟ *120* หน่วย", "สรุป\n\nใช้ไฟ 120 หน่วย"},
		{"soft breaks kept", "ประเภท: 1.1.1\nหน่วย: 120", "ประเภท: 1.1.1\nหน่วย: 120"},
		{"list", "รายการ\n- 1-15: 35.23\n- 16-25: 29.88", "รายการ\n- 1-15: 35.23\n- 16-25: 29.88"},
		{"link", "ดูที่ [PEA](https://www.pea.co.th)", "ดูที่ PEA (https://www.pea.co.th)"},
		{"code span", "use `bill --units 120`", "use bill --units 120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}

type echoHandler struct {
	seen []model.QueryInput
}

func (h *echoHandler) Handle(_ context.Context, in model.QueryInput) model.Reply {
	h.seen = append(h.seen, in)
	return model.Reply{Text: "**" + in.Query + "**", Mode: model.RenderMarkdown}
}

func TestConsoleRun(t *testing.T) {
	in := strings.NewReader("hello\n\n@alice ใช้ไฟ 120 หน่วย\n")
	var out bytes.Buffer
	h := &echoHandler{}

	require.NoError(t, NewConsole(in, &out, "local", false).Run(context.Background(), h))

	require.Len(t, h.seen, 2)
	assert.Equal(t, "local", h.seen[0].Identity)
	assert.Equal(t, "alice", h.seen[1].Identity)
	assert.Equal(t, "ใช้ไฟ 120 หน่วย", h.seen[1].Query)

	// markdown is not supported so replies arrive stripped
	assert.Equal(t, "[local]\nhello\n\n[alice]\nใช้ไฟ 120 หน่วย\n\n", out.String())
}

func TestConsoleMarkdownPassthrough(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewConsole(strings.NewReader("hi\n"), &out, "local", true).Run(context.Background(), &echoHandler{}))
	assert.Equal(t, "[local]\n**hi**\n\n", out.String())
}
