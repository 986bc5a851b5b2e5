package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/nbenliogludev/bdd-browser-agent/internal/config"
)

// New builds the model client selected by cfg.Provider. An empty API key is
// taken from the provider's conventional environment variable.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIClient(cfg, logger)
	case config.ProviderBedrock:
		return NewBedrockClient(ctx, cfg, logger)
	case config.ProviderGemini:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
