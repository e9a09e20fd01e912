package main

import (
	"github.com/rs/zerolog"

	"github.com/ankitjc/prompt-polish/internal/infra"
	"github.com/ankitjc/prompt-polish/internal/providers/completion"
)

func newCompleter(cfg *infra.Config, logger zerolog.Logger) completion.Completer {
	switch cfg.PromptProvider {
	case completion.ProviderGemini:
		return completion.NewGeminiCompleter(completion.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
	case completion.ProviderStatic:
		return completion.NewStaticCompleter(cfg.StaticSentence)
	default:
		return completion.NewOpenAICompleter(completion.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai model adjusted")
			},
		})
	}
}
