package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	// GeminiAPIKey is deliberately optional here. A missing key surfaces on the
	// first generation attempt instead of preventing the wizard from loading.
	GeminiAPIKey  string `env:"GOOGLE_AI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-3-pro-image-preview"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	ImageProvider string `env:"IMAGE_PROVIDER" envDefault:"gemini"`

	AssetDir                string        `env:"ASSET_DIR" envDefault:"public"`
	ReferenceAsset          string        `env:"REFERENCE_ASSET" envDefault:"crochet-design.jpg"`
	InstructionTemplateFile string        `env:"INSTRUCTION_TEMPLATE_FILE"`
	ProviderTimeout         time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"120s"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// TrustProxyHeaders enables X-Forwarded-For and X-Real-IP for client
	// addressing. Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	MaxSessions            int           `env:"MAX_SESSIONS" envDefault:"1000"`
	SessionRateLimitPerMin int           `env:"SESSION_RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ImageProvider = strings.ToLower(strings.TrimSpace(cfg.ImageProvider))
	switch cfg.ImageProvider {
	case ProviderGemini, ProviderSynthetic:
	default:
		return nil, fmt.Errorf("IMAGE_PROVIDER %q is not supported", cfg.ImageProvider)
	}

	if strings.TrimSpace(cfg.ReferenceAsset) == "" {
		return nil, fmt.Errorf("REFERENCE_ASSET is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	origins := cfg.AllowedOrigins[:0]
	for _, origin := range cfg.AllowedOrigins {
		if o := strings.TrimSpace(origin); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins
	if cfg.AppEnv != EnvDevelopment {
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS wildcard is only allowed when APP_ENV=%s", EnvDevelopment)
			}
		}
	}

	return cfg, nil
}

// EnvDevelopment is the APP_ENV value that relaxes origin checks.
const EnvDevelopment = "development"

// Supported values of IMAGE_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderSynthetic = "synthetic"
)
