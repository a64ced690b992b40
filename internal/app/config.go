package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"market_dashboard/internal/config"
	"market_dashboard/internal/notifications"
	"market_dashboard/internal/relay"
	"market_dashboard/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	// Configure logging
	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	zerolog.SetGlobalLevel(parseLevel(os.Getenv("LOGLEVEL"), os.Getenv("ENV") == "production"))

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

func parseLevel(raw string, production bool) zerolog.Level {
	levelStr := strings.ToLower(strings.TrimSpace(raw))
	switch levelStr {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled":
		return zerolog.Disabled
	case "":
		// Default based on environment
		if production {
			return zerolog.WarnLevel
		}
		return zerolog.InfoLevel
	default:
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
		return zerolog.InfoLevel
	}
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadConfig reads CONFIG_FILE and exits on an unusable configuration.
func LoadConfig() *config.Config {
	path := GetEnvWithDefault("CONFIG_FILE", "config.yaml")
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := checkCredentials(cfg); err != nil {
		log.Fatal().Err(err).Msg("Missing spreadsheet credentials")
	}
	return cfg
}

// checkCredentials reports the first spreadsheet setting that is still empty
// after the config file and environment overrides were applied.
func checkCredentials(cfg *config.Config) error {
	if cfg.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID environment variable is required")
	}
	if cfg.Sheets.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY environment variable is required")
	}
	return nil
}

// InitializeClients creates the Google Sheets client and the automation relay.
func InitializeClients(ctx context.Context, cfg *config.Config) (*sheets.Client, *relay.Relay) {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.SheetsOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	table, err := relay.NewTable(cfg.Triggers)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build trigger table")
	}
	relayClient, err := relay.New(table, relay.Options{
		AwaitResponse: cfg.Relay.AwaitResponse,
		Method:        cfg.Relay.Method,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create relay")
	}

	configured := 0
	for _, def := range table.Definitions() {
		if def.Configured() {
			configured++
		}
	}
	log.Debug().
		Int("triggers", len(table.Definitions())).
		Int("configured", configured).
		Bool("await_response", cfg.Relay.AwaitResponse).
		Msg("Clients initialized successfully")
	return sheetsClient, relayClient
}

// InitializeNotificationClient creates and returns the notification client
func InitializeNotificationClient() *notifications.Client {
	enabled := GetEnvWithDefault("NTFY_ENABLED", "false") == "true"
	baseURL := GetEnvWithDefault("NTFY_URL", "https://ntfy.sh")
	topic := GetEnvWithDefault("NTFY_TOPIC", "market-dashboard")
	priority := GetEnvWithDefault("NTFY_PRIORITY", "")

	log.Debug().
		Bool("enabled", enabled).
		Str("base_url", baseURL).
		Str("topic", topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(baseURL, topic, enabled, priority)

	if enabled {
		log.Info().Str("topic", topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}

	return client
}
