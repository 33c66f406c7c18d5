package image

import (
	"fmt"

	"tryon/internal/imagegen"
	"tryon/internal/infra"
	"tryon/internal/providers/genai"
	"tryon/internal/providers/synthetic"
)

// New selects the provider named by IMAGE_PROVIDER. There is no silent
// fallback: a Gemini deployment without a key fails on the first request.
func New(cfg *infra.Config, logger infra.Logger) (imagegen.Provider, error) {
	switch cfg.ImageProvider {
	case infra.ProviderGemini, "":
		providerLogger := logger.With().Str("provider", "gemini").Logger()
		client, err := genai.NewClient(genai.Options{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Timeout: cfg.ProviderTimeout,
			Logger:  &providerLogger,
		})
		if err != nil {
			return nil, err
		}
		if !client.HasCredentials() {
			logger.Warn().Msg("GOOGLE_AI_API_KEY is not set; generation requests will fail")
		}
		return client, nil
	case infra.ProviderSynthetic:
		logger.Warn().Msg("using synthetic image provider; previews are rendered locally")
		return synthetic.New(synthetic.WithLogger(logger.With().Str("provider", "synthetic").Logger())), nil
	default:
		return nil, fmt.Errorf("unsupported image provider %q", cfg.ImageProvider)
	}
}
