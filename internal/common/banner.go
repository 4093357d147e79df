package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective runtime settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Zola", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("host", config.Server.Host).
		Int("port", config.Server.Port).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Bool("image_pool", config.ImagePool.Enabled).
		Bool("fence_stale_responses", config.Generation.FenceStaleResponses).
		Msg("Zola travel planner starting")
}
