package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/nodes"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/observers"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/prompts"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

// Config holds everything needed to compose the turn graph end-to-end.
type Config struct {
	Engine      *tariff.Engine
	Sessions    model.SessionStore
	Interpreter model.Interpreter
	Generator   model.Generator
	// Telemetry is optional.
	Telemetry        model.TelemetrySource
	TelemetryTimeout time.Duration
	Prompt           model.PromptConfig
	// BillingDate pins the billing date; zero means Clock.
	BillingDate time.Time
	Clock       func() time.Time
}

// Orchestrator routes each inbound message either to deterministic billing
// or to the generation service, keeping the per-identity history current.
type Orchestrator struct {
	deps     *nodes.Deps
	runnable compose.Runnable[model.QueryInput, model.Reply]
}

// Build validates cfg, renders the pinned persona prompt and compiles the graph.
func Build(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("billing engine is nil")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if cfg.Interpreter == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("interpreter and generator are required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	billingDate := func() time.Time {
		if !cfg.BillingDate.IsZero() {
			return cfg.BillingDate
		}
		return clock()
	}

	systemPrompt, err := prompts.RenderSystem(ctx, cfg.Prompt, cfg.Engine.Catalog(), billingDate())
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	deps := &nodes.Deps{
		Engine:           cfg.Engine,
		Sessions:         cfg.Sessions,
		Interpreter:      cfg.Interpreter,
		Generator:        cfg.Generator,
		Telemetry:        cfg.Telemetry,
		TelemetryTimeout: cfg.TelemetryTimeout,
		Prompt:           cfg.Prompt,
		SystemPrompt:     systemPrompt,
		BillingDate:      billingDate,
	}

	runnable, err := buildGraph(ctx, deps)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &Orchestrator{deps: deps, runnable: runnable}, nil
}

func buildGraph(ctx context.Context, deps *nodes.Deps) (compose.Runnable[model.QueryInput, model.Reply], error) {
	g := compose.NewGraph[model.QueryInput, model.Reply]()

	if err := g.AddLambdaNode(nodes.NodePrepare, nodes.NewPrepareNode(deps)); err != nil {
		return nil, fmt.Errorf("add prepare node: %w", err)
	}
	if err := g.AddLambdaNode(nodes.NodeBilling, nodes.NewBillingNode(deps)); err != nil {
		return nil, fmt.Errorf("add billing node: %w", err)
	}
	if err := g.AddLambdaNode(nodes.NodeConverse, nodes.NewConverseNode(deps)); err != nil {
		return nil, fmt.Errorf("add converse node: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodes.NodePrepare},
		{nodes.NodeBilling, compose.END},
		{nodes.NodeConverse, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	route := compose.NewGraphBranch(nodes.NewRouteCondition(), map[string]bool{
		nodes.NodeBilling:  true,
		nodes.NodeConverse: true,
	})
	if err := g.AddBranch(nodes.NodePrepare, route); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return nil, fmt.Errorf("error adding route branch: %w", err)
	}

	runnable, err := g.Compile(ctx, compose.WithGraphName("smartats_turn"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	return runnable, nil
}

// SystemPrompt is the pinned entry seeded into new sessions.
func (o *Orchestrator) SystemPrompt() string {
	return o.deps.SystemPrompt
}

// Handle processes one message. It always produces a reply: collaborator
// failures become polite fallback text.
func (o *Orchestrator) Handle(ctx context.Context, in model.QueryInput) model.Reply {
	if strings.TrimSpace(in.Query) == "" {
		return model.Reply{Text: nodes.EmptyQueryText(o.deps), Mode: model.RenderPlain}
	}
	reply, err := o.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks(), observers.NewTurnCallbacks()))
	if err != nil {
		logx.Error().Err(err).Str("identity", in.Identity).Msg("turn failed")
		return model.Reply{Text: nodes.UnavailableText(o.deps), Mode: model.RenderPlain}
	}
	return reply
}
