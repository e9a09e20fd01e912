package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ankitjc/prompt-polish/internal/http/handlers"
	"github.com/ankitjc/prompt-polish/internal/http/httpapi"
	"github.com/ankitjc/prompt-polish/internal/infra"
	"github.com/ankitjc/prompt-polish/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if missing := cfg.MissingCredential(); missing != "" {
		logger.Warn().
			Str("provider", cfg.PromptProvider).
			Str("env", missing).
			Msg("provider credential not set; generation requests will fail until it is configured")
	}

	completer := newCompleter(cfg, logger)
	app := handlers.NewApp(completer, logger)
	app.Provider = cfg.PromptProvider
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins: middleware.SplitOrigins(cfg.CORSAllowedOrigins),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("provider", cfg.PromptProvider).
			Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
