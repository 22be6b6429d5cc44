package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"

	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
)

// QueryInput is one inbound text event from the transport.
type QueryInput struct {
	Identity string `json:"identity"`
	Query    string `json:"query"`
	// BillingDate overrides the orchestrator's billing clock when set.
	BillingDate time.Time `json:"billing_date,omitempty"`
}

// RenderMode says how a reply should be presented by the transport.
type RenderMode string

const (
	RenderMarkdown RenderMode = "markdown"
	RenderPlain    RenderMode = "plain"
)

// Reply is the text returned to the transport for one turn.
type Reply struct {
	Text string
	Mode RenderMode
}

// TurnState carries one inbound message through the graph. It lives for a
// single turn and is never persisted.
type TurnState struct {
	TurnID      string
	Input       QueryInput
	BillingDate time.Time
	// History is the session snapshot taken before the turn, pinned entry first.
	History        []*schema.Message
	Interpretation Interpretation
	// Telemetry is empty when the source is disabled, failed or timed out.
	Telemetry map[string]string
}

// Interpretation is what the natural-language collaborator extracted from a
// message. A nil Units means "no extraction".
type Interpretation struct {
	Units           *decimal.Decimal
	PeakUnits       *decimal.Decimal
	Hint            tariff.Hint
	SubsidyEligible bool
}

// HasUnits reports whether a unit count was extracted.
func (i Interpretation) HasUnits() bool {
	return i.Units != nil
}

// Interpreter extracts a unit count and classification hint from free text.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (Interpretation, error)
}

// Generator returns the external model's reply to an ordered history.
type Generator interface {
	Generate(ctx context.Context, messages []*schema.Message) (string, error)
}

// TelemetrySource supplies the latest sensor readings keyed by sensor name.
type TelemetrySource interface {
	Latest(ctx context.Context) (map[string]string, error)
}
