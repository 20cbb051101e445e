package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/dreamseed/internal/api"
	"github.com/MikeSquared-Agency/dreamseed/internal/callguard"
	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/openai"
	"github.com/MikeSquared-Agency/dreamseed/internal/personalize"
	"github.com/MikeSquared-Agency/dreamseed/internal/processor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
	"github.com/MikeSquared-Agency/dreamseed/internal/supabase"
	"github.com/MikeSquared-Agency/dreamseed/internal/telemetry"
	"github.com/MikeSquared-Agency/dreamseed/internal/vapi"
	"github.com/MikeSquared-Agency/dreamseed/internal/website"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the call-ended event consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, slog.Default())
	},
}

func serve(ctx context.Context, logger *slog.Logger) error {
	logger.Info("dreamseed starting", "port", cfg.Port, "version", version)

	shutdownTraces, err := telemetry.Init(ctx, cfg.TracesEnabled, version, logger)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer shutdownTraces(context.Background())

	// Database
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	logger.Info("database connected")

	// OpenAI
	if cfg.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.EmbeddingModel)
	logger.Info("openai client ready", "model", cfg.Model, "embedding_model", cfg.EmbeddingModel)

	classifier := classify.WholeRecord{}
	reconciler := dreamdna.NewReconciler(db, classifier, logger)

	// Supabase (optional: legacy Dream DNA tier and site hosting)
	var (
		legacyReader dreamdna.LegacyReader
		uploader     website.Uploader
		tiers        = []dreamdna.Tier{dreamdna.V2Tier{Reconciler: reconciler}}
	)
	if cfg.SupabaseConfigured() {
		sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.SitesBucket)
		if err != nil {
			return fmt.Errorf("supabase client: %w", err)
		}
		legacyReader, uploader = sb, sb
		tiers = append(tiers, dreamdna.LegacyTier{Writer: sb})
		logger.Info("supabase client ready", "bucket", cfg.SitesBucket)
	} else {
		logger.Warn("supabase not configured, legacy dream dna and site hosting disabled")
	}
	tiers = append(tiers, dreamdna.ProfileTier{Profiles: db})
	chain := dreamdna.NewChain(logger, tiers...)
	loader := dreamdna.NewLoader(db, legacyReader, logger)

	// NATS/Hermes (optional: HTTP keeps working without events)
	var events hermes.Publisher
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
	if err != nil {
		logger.Warn("NATS unavailable, events disabled", "url", cfg.NatsURL, "error", err)
	} else {
		defer hermesClient.Close()
		events = hermesClient
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Call-ended dedup
	var guard callguard.Guard
	if cfg.RedisAddr != "" {
		rg, err := callguard.NewRedis(ctx, cfg.RedisAddr, callguard.DefaultTTL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rg.Close()
		guard = rg
		logger.Info("redis call guard ready", "addr", cfg.RedisAddr)
	} else {
		guard = callguard.NewMemory(callguard.DefaultTTL)
		logger.Warn("REDIS_ADDR not set, call dedup is per-process")
	}

	proc := processor.New(processor.Deps{
		Extractor:   extractor.New(llm, logger),
		Reconciler:  reconciler,
		Probability: dreamdna.NewProbabilityRecorder(db, logger),
		Embedder:    llm,
		Transcripts: db,
		Events:      events,
		Guard:       guard,
	}, logger)

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectCallEnded, hermes.QueueProcessors, proc.HandleCallEnded); err != nil {
			return fmt.Errorf("subscribe call events: %w", err)
		}
	}

	catalog, err := website.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load website catalog: %w", err)
	}
	sites := website.NewGenerator(catalog, loader, classifier, uploader, db, events, logger)

	var assistant personalize.AssistantUpdater
	if cfg.VapiConfigured() {
		assistant = vapi.NewClient(cfg.VapiAPIKey, cfg.VapiBaseURL, logger)
		logger.Info("vapi client ready", "assistant_id", cfg.VapiAssistantID)
	} else {
		logger.Warn("vapi not configured, personalization is preview-only")
	}
	personalizer := personalize.NewService(loader, db, assistant, cfg.VapiAssistantID, logger)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, cfg.SupabaseJWTSecret, api.Deps{
		Processor:   proc,
		Users:       db,
		DreamDNA:    chain,
		Websites:    sites,
		Personalize: personalizer,
		Events:      events,
	}, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("dreamseed ready", "port", cfg.Port, "dreamdna_tiers", chain.Tiers())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	logger.Info("dreamseed stopped")
	return nil
}
