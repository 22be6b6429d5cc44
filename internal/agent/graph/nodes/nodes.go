package nodes

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/prompts"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/telemetry"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

const (
	NodePrepare  = "prepare"
	NodeBilling  = "billing"
	NodeConverse = "converse"
)

// Deps are the collaborators shared by every node. Telemetry may be nil.
type Deps struct {
	Engine           *tariff.Engine
	Sessions         model.SessionStore
	Interpreter      model.Interpreter
	Generator        model.Generator
	Telemetry        model.TelemetrySource
	TelemetryTimeout time.Duration
	Prompt           model.PromptConfig
	SystemPrompt     string
	// BillingDate returns the date used when the input carries none.
	BillingDate func() time.Time
}

// NewPrepareNode loads the session and, concurrently, interprets the message
// and fetches telemetry.
func NewPrepareNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.QueryInput) (*model.TurnState, error) {
		state := &model.TurnState{
			TurnID:      uuid.NewString(),
			Input:       in,
			BillingDate: in.BillingDate,
		}
		if state.BillingDate.IsZero() {
			state.BillingDate = d.BillingDate()
		}
		state.History = ensureSession(ctx, d, in.Identity)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			interp, err := d.Interpreter.Interpret(gctx, in.Query)
			if err != nil {
				logx.Warn().Err(err).Str("turn_id", state.TurnID).Msg("interpretation failed, treating as conversation")
				return nil
			}
			state.Interpretation = interp
			return nil
		})
		if d.Telemetry != nil {
			g.Go(func() error {
				state.Telemetry = fetchTelemetry(gctx, d, state.TurnID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		ev := logx.Info().
			Str("turn_id", state.TurnID).
			Str("identity", in.Identity).
			Bool("has_units", state.Interpretation.HasUnits()).
			Int("telemetry_fields", len(state.Telemetry))
		if state.Interpretation.HasUnits() {
			ev = ev.Str("units", state.Interpretation.Units.String()).Str("hint", string(state.Interpretation.Hint))
		}
		ev.Msg("turn prepared")
		return state, nil
	})
}

// NewRouteCondition sends turns with an extracted unit count to billing.
func NewRouteCondition() func(context.Context, *model.TurnState) (string, error) {
	return func(_ context.Context, state *model.TurnState) (string, error) {
		if state.Interpretation.HasUnits() {
			return NodeBilling, nil
		}
		return NodeConverse, nil
	}
}

// NewBillingNode computes the bill deterministically and renders the reply.
// Billing failures produce an explanation and leave the session untouched.
func NewBillingNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.TurnState) (model.Reply, error) {
		interp := state.Interpretation
		breakdown, err := d.Engine.Bill(tariff.BillingRequest{
			Units:           *interp.Units,
			Hint:            interp.Hint,
			BillingDate:     state.BillingDate,
			SubsidyEligible: interp.SubsidyEligible,
			PeakUnits:       interp.PeakUnits,
		})
		if err != nil {
			err = errx.WrapBilling(err)
			logx.Info().Err(err).
				Str("turn_id", state.TurnID).
				Str("identity", state.Input.Identity).
				Int("status", errx.StatusOf(err)).
				Msg("billing rejected")
			return model.Reply{Text: billingErrorText(d, err, state.BillingDate), Mode: model.RenderPlain}, nil
		}

		text, err := prompts.RenderBill(ctx, d.Prompt, breakdown)
		if err != nil {
			logx.Error().Err(err).Str("turn_id", state.TurnID).Msg("failed to render bill")
			return model.Reply{Text: UnavailableText(d), Mode: model.RenderPlain}, nil
		}

		logx.Info().
			Str("turn_id", state.TurnID).
			Str("identity", state.Input.Identity).
			Str("rate_class", breakdown.RateClassID).
			Str("units", breakdown.Units.String()).
			Str("net_total", breakdown.NetTotalRounded().StringFixed(2)).
			Bool("subsidy_applied", breakdown.SubsidyApplied).
			Msg("bill computed")

		recordTurn(ctx, d, state, text)
		return model.Reply{Text: text, Mode: model.RenderMarkdown}, nil
	})
}

// NewConverseNode forwards the message with the session history to the
// generation service. No session lock is held during the call.
func NewConverseNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.TurnState) (model.Reply, error) {
		msgs := make([]*schema.Message, 0, len(state.History)+2)
		msgs = append(msgs, state.History...)
		if block := telemetry.Describe(state.Telemetry); block != "" {
			msgs = append(msgs, schema.SystemMessage(block))
		}
		msgs = append(msgs, schema.UserMessage(state.Input.Query))

		text, err := d.Generator.Generate(ctx, msgs)
		if err != nil {
			logx.Warn().Err(err).
				Str("turn_id", state.TurnID).
				Str("identity", state.Input.Identity).
				Msg("generation unavailable")
			return model.Reply{Text: UnavailableText(d), Mode: model.RenderPlain}, nil
		}

		recordTurn(ctx, d, state, text)
		return model.Reply{Text: text, Mode: model.RenderMarkdown}, nil
	})
}

// ensureSession returns the history snapshot, resetting a corrupted session.
// When the store is unavailable the turn continues with the pinned prompt only.
func ensureSession(ctx context.Context, d *Deps, identity string) []*schema.Message {
	sess, err := d.Sessions.GetOrCreate(ctx, identity, d.SystemPrompt)
	if errors.Is(err, model.ErrSessionCorruption) {
		logx.Warn().Err(errx.WrapSession(err)).Str("identity", identity).Msg("resetting corrupted session")
		if rerr := d.Sessions.Reset(ctx, identity, d.SystemPrompt); rerr != nil {
			logx.Error().Err(rerr).Str("identity", identity).Msg("failed to reset session")
		}
		sess, err = d.Sessions.GetOrCreate(ctx, identity, d.SystemPrompt)
	}
	if err != nil {
		logx.Error().Err(err).Str("identity", identity).Msg("session store unavailable")
		return []*schema.Message{schema.SystemMessage(d.SystemPrompt)}
	}
	return sess.Messages
}

func fetchTelemetry(ctx context.Context, d *Deps, turnID string) map[string]string {
	if d.TelemetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.TelemetryTimeout)
		defer cancel()
	}
	readings, err := d.Telemetry.Latest(ctx)
	if err != nil {
		logx.Warn().Err(err).Str("turn_id", turnID).Msg("telemetry unavailable")
		return nil
	}
	return readings
}

// recordTurn appends the user message and reply as one unit. A failure is
// logged; the reply is still delivered.
func recordTurn(ctx context.Context, d *Deps, state *model.TurnState, reply string) {
	err := d.Sessions.AppendTurn(ctx, state.Input.Identity,
		schema.UserMessage(state.Input.Query),
		schema.AssistantMessage(reply, nil))
	if err != nil {
		logx.Error().Err(err).
			Str("turn_id", state.TurnID).
			Str("identity", state.Input.Identity).
			Msg("failed to record turn")
	}
}
