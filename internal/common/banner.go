package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Flickr Insert", GetVersion())

	mode := "single run"
	if config.Run.Schedule != "" {
		mode = "scheduled"
	}

	logger.Info().
		Str("version", GetFullVersion()).
		Str("storage", config.StorageType()).
		Strs("content_dirs", config.Content.Dirs).
		Str("output_dir", config.Content.OutputDir).
		Str("mode", mode).
		Msg("Flickr Insert starting")
}
