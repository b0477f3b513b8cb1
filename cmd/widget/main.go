// Command widget serves the portfolio assistant API that the embedded chat
// widget talks to.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/config"
	"github.com/tbourn/portfolio-assistant/internal/fallback"
	httpapi "github.com/tbourn/portfolio-assistant/internal/http"
	"github.com/tbourn/portfolio-assistant/internal/i18n"
	"github.com/tbourn/portfolio-assistant/internal/knowledge"
	"github.com/tbourn/portfolio-assistant/internal/observability"
	"github.com/tbourn/portfolio-assistant/internal/report"
	"github.com/tbourn/portfolio-assistant/internal/search"
	"github.com/tbourn/portfolio-assistant/internal/services"
	"github.com/tbourn/portfolio-assistant/internal/sysutil"
	"github.com/tbourn/portfolio-assistant/internal/voice"
)

var version = "dev"

func main() {
	envErr := godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		logger.Debug().Msg("no .env file, using process environment")
	}

	if err := run(cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("widget server stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	corpus, err := knowledge.LoadFile(cfg.KnowledgePath)
	if err != nil {
		return err
	}
	pool, err := fallback.New(corpus.Fallbacks)
	if err != nil {
		return err
	}
	idx := search.New(corpus.Entries(), search.WithThreshold(cfg.MatchThreshold))
	if cfg.OpenAI.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is empty; uncanned questions will fail")
	}
	client := completion.New(completion.Options{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		Model:        cfg.OpenAI.Model,
		MaxTokens:    cfg.OpenAI.MaxTokens,
		Timeout:      cfg.OpenAI.Timeout,
		SystemPrompt: corpus.Persona,
	})

	policy, err := services.ParseLanguagePolicy(cfg.LanguagePolicy)
	if err != nil {
		return err
	}
	prefs := services.NewPreferences(store, logger, cfg.DefaultLanguage)
	chat := &services.ChatService{
		Resolver: services.NewResolver(idx, client, pool),
		Conversation: services.NewConversationStore(store, logger, func(ctx context.Context) string {
			return i18n.Welcome(prefs.Language(ctx))
		}),
		Analytics:     services.NewAggregator(ctx, store, logger, services.WithLanguagePolicy(policy)),
		Preferences:   prefs,
		Log:           logger,
		MaxInputRunes: cfg.MaxInputRunes,
	}

	deps := httpapi.Deps{
		Chat:        chat,
		Analytics:   chat.Analytics,
		Suggestions: corpus.Suggestions,
	}
	if cfg.VoiceEnabled {
		deps.Narrator = voice.NewNarrator(voice.ClientSide{})
	}

	rep, err := report.New(cfg.ReportCron, chat.Analytics, logger)
	if err != nil {
		return err
	}
	rep.Start()

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Int("answers", idx.Len()).
			Str("model", client.Model()).
			Msg("widget server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	rep.Stop(sctx)
	if store.Degraded() {
		logger.Warn().Msg("store ran degraded; recent state was kept in memory only")
	}
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
