package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/conversations"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/generation"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/graph/nlu"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	"github.com/Natthapon12-yod/smartatsai/internal/agent/telemetry"
	"github.com/Natthapon12-yod/smartatsai/internal/tariff"
	"github.com/Natthapon12-yod/smartatsai/internal/transport"
	logx "github.com/Natthapon12-yod/smartatsai/pkg/logger"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"

	nluRules = "rules"
	nluModel = "model"
)

type chatOptions struct {
	identity   string
	healthAddr string
}

func newChatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the bot on stdin/stdout",
		Long: `Run the full bot loop on the console. Every line is one message from the
default identity; prefix a line with "@name " to speak as another identity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, cfg, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.identity, "identity", "console", "identity for lines without an @name prefix")
	cmd.Flags().StringVar(&opts.healthAddr, "health-addr", "", "serve /healthz on this address (e.g. :8080)")
	return cmd
}

func runChat(ctx context.Context, cfg *AppConfig, opts chatOptions, cmd *cobra.Command) error {
	catalog, err := cfg.loadCatalog()
	if err != nil {
		return err
	}
	billingDate, err := cfg.fixedBillingDate(catalog.Settings().Location)
	if err != nil {
		return err
	}

	scheduleCovers(catalog, billingDate, time.Now())

	var rdb *redis.Client
	if cfg.Conversation.Backend == backendRedis || cfg.Telemetry.Enabled {
		rdb, err = cfg.Redis.New()
		if err != nil {
			return fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		defer rdb.Close()
		logx.Info().Msg("Connected to Redis successfully")
	}

	sessions, err := newSessionStore(cfg.Conversation, rdb)
	if err != nil {
		return err
	}

	generator, err := newGenerator(ctx, cfg, cfg.Generation.Model, cfg.Generation.Temperature, cfg.Generation.MaxTokens, cfg.Generation.Timeout)
	if err != nil {
		return err
	}

	interpreter, err := newInterpreter(ctx, cfg)
	if err != nil {
		return err
	}

	var source model.TelemetrySource
	if cfg.Telemetry.Enabled {
		source = telemetry.NewRedisSource(rdb, cfg.Telemetry.Key)
	}

	orch, err := graph.Build(ctx, graph.Config{
		Engine:           tariff.NewEngine(catalog),
		Sessions:         sessions,
		Interpreter:      interpreter,
		Generator:        generator,
		Telemetry:        source,
		TelemetryTimeout: cfg.Telemetry.Timeout,
		Prompt:           cfg.Prompt,
		BillingDate:      billingDate,
	})
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	if opts.healthAddr != "" {
		srv := &http.Server{
			Addr:              opts.healthAddr,
			Handler:           newHealthHandler(rdb),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Error().Err(err).Str("addr", opts.healthAddr).Msg("health server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logx.Info().Str("addr", opts.healthAddr).Msg("health server listening")
	}

	logx.Info().
		Str("generation", cfg.Generation.Provider+"/"+cfg.Generation.Model).
		Str("nlu", cfg.NLU.Mode).
		Str("sessions", cfg.Conversation.Backend).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("bot ready")

	console := transport.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), opts.identity, cfg.TransportMarkdown)
	if err := console.Run(ctx, orch); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// scheduleCovers warns at startup when no rate class is effective on the
// billing date the bot will use; every bill would then be refused as expired.
func scheduleCovers(catalog *tariff.Catalog, billingDate, now time.Time) bool {
	date := billingDate
	if date.IsZero() {
		date = now
	}
	if len(catalog.Active(date)) > 0 {
		return true
	}
	ev := logx.Warn().Str("billing_date", date.In(catalog.Settings().Location).Format(time.DateOnly))
	if latest := catalog.Latest(); len(latest) > 0 {
		ev = ev.Str("schedule_ends", latest[0].EffectiveTo.Format(time.DateOnly))
	}
	ev.Msg("no tariff schedule covers the billing date; set BILLING_DATE or TARIFF_FILE")
	return false
}

func newSessionStore(cfg model.ConversationConfig, rdb *redis.Client) (model.SessionStore, error) {
	switch cfg.Backend {
	case "", backendMemory:
		return conversations.NewMemoryStore(cfg.HistoryLimit), nil
	case backendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session backend needs REDIS_URL")
		}
		return conversations.NewRedisStore(rdb, cfg.HistoryLimit, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown CONVERSATION_BACKEND %q", cfg.Backend)
	}
}

func newGenerator(ctx context.Context, cfg *AppConfig, modelName string, temperature float32, maxTokens int, timeout time.Duration) (*generation.Generator, error) {
	chatModel, err := generation.NewChatModel(ctx, generation.ChatModelConfig{
		Provider:      cfg.Generation.Provider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiBaseURL: cfg.GeminiBaseURL,
		GroqAPIKey:    cfg.GroqAPIKey,
		GroqBaseURL:   cfg.GroqBaseURL,
		Model:         modelName,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", cfg.Generation.Provider, err)
	}
	return generation.NewGenerator(chatModel, generation.Options{
		Provider: cfg.Generation.Provider,
		Model:    modelName,
		Timeout:  timeout,
	}), nil
}

func newInterpreter(ctx context.Context, cfg *AppConfig) (model.Interpreter, error) {
	rules := nlu.NewRuleInterpreter()
	switch cfg.NLU.Mode {
	case "", nluRules:
		return rules, nil
	case nluModel:
		modelName := cfg.NLU.Model
		if modelName == "" {
			modelName = cfg.Generation.Model
		}
		gen, err := newGenerator(ctx, cfg, modelName, cfg.NLU.Temperature, cfg.NLU.MaxTokens, cfg.NLU.Timeout)
		if err != nil {
			return nil, err
		}
		return nlu.NewModelInterpreter(gen, rules), nil
	default:
		return nil, fmt.Errorf("unknown NLU_MODE %q", cfg.NLU.Mode)
	}
}
