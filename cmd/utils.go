package cmd

import (
	"flag"
	"log"
	"log/slog"

	"github.com/joho/godotenv"

	"scorewise-backend/internal/config"
	"scorewise-backend/internal/core"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// CreateQualityAnalyzer loads the optional word list. A missing or unreadable
// list disables the valid-word signal rather than failing startup.
func CreateQualityAnalyzer(cfg config.Config) *core.QualityAnalyzer {
	if cfg.WordListPath == "" {
		return core.NewQualityAnalyzer(nil)
	}

	words, err := core.LoadWordSet(cfg.WordListPath)
	if err != nil {
		slog.Warn("could not load word list, disabling valid-word check", "path", cfg.WordListPath, "error", err)
		return core.NewQualityAnalyzer(nil)
	}

	slog.Info("loaded word list", "path", cfg.WordListPath, "words", len(words))
	return core.NewQualityAnalyzer(words)
}

func CreateDeciderConfig(cfg config.Config) core.DeciderConfig {
	decider := core.DefaultDeciderConfig()
	if cfg.CoverageThreshold > 0 {
		decider.CoverageThreshold = cfg.CoverageThreshold
	}
	if cfg.GarbledThreshold > 0 {
		decider.GarbledThreshold = cfg.GarbledThreshold
	}
	return decider
}
