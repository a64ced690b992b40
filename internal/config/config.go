package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"market_dashboard/internal/dashboard"
	"market_dashboard/internal/normalize"
	"market_dashboard/internal/relay"
	"market_dashboard/internal/sheets"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration of the dashboard backend.
type Config struct {
	Server   Server             `yaml:"server"`
	Sheets   Sheets             `yaml:"sheets"`
	Display  Display            `yaml:"display"`
	News     News               `yaml:"news"`
	Buckets  normalize.Rules    `yaml:"buckets"`
	Triggers []relay.Definition `yaml:"triggers"`
	Relay    Relay              `yaml:"relay"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// Sheets holds the spreadsheet location, credentials and the sheets to read.
type Sheets struct {
	SpreadsheetID  string                  `yaml:"spreadsheet_id"`
	APIKey         string                  `yaml:"api_key"`
	Endpoint       string                  `yaml:"endpoint"`
	ReadsPerMinute int                     `yaml:"reads_per_minute"`
	Burst          int                     `yaml:"burst"`
	Market         dashboard.SheetSource   `yaml:"market"`
	News           []dashboard.SheetSource `yaml:"news"`
}

type Display struct {
	Timezone        string        `yaml:"timezone"`
	TimeFormat      string        `yaml:"time_format"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// News configures how news items are split into world and regional lists.
type News struct {
	RegionName    string   `yaml:"region_name"`
	RegionMarkers []string `yaml:"region_markers"`
}

type Relay struct {
	AwaitResponse bool   `yaml:"await_response"`
	Method        string `yaml:"method"`
}

// Default returns the configuration of the original deployment.
func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Sheets: Sheets{
			ReadsPerMinute: 60,
			Burst:          4,
			Market: dashboard.SheetSource{
				Name:   "Core markets",
				Range:  "Core markets!A:E",
				Layout: normalize.DefaultMarketLayout(),
			},
			News: []dashboard.SheetSource{
				{Name: "BBC", Label: "BBC", Layout: normalize.DefaultNewsLayout()},
				{Name: "CNN", Label: "CNN", Layout: normalize.DefaultNewsLayout()},
				{Name: "BBC TR", Label: "BBC TR", Layout: normalize.DefaultNewsLayout()},
			},
		},
		Display: Display{
			Timezone:        "UTC",
			TimeFormat:      "1/2/2006, 3:04:05 PM",
			RefreshInterval: 5 * time.Minute,
		},
		News: News{
			RegionName:    "Turkey",
			RegionMarkers: normalize.DefaultRegionMarkers(),
		},
		Buckets:  normalize.DefaultRules(),
		Triggers: relay.DefaultDefinitions(),
		Relay:    Relay{AwaitResponse: true, Method: "POST"},
	}
}

// Load reads the YAML configuration file at path on top of the defaults and
// then applies environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("No config file found, using built-in defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SPREADSHEET_ID"); v != "" {
		cfg.Sheets.SpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Sheets.APIKey = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DISPLAY_TIMEZONE"); v != "" {
		cfg.Display.Timezone = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse REFRESH_INTERVAL: %w", err)
		}
		cfg.Display.RefreshInterval = d
	}
	if v := os.Getenv("RELAY_AWAIT_RESPONSE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("failed to parse RELAY_AWAIT_RESPONSE: %w", err)
		}
		cfg.Relay.AwaitResponse = b
	}

	for i, def := range cfg.Triggers {
		if v := os.Getenv(webhookEnvKey(def.ID)); v != "" {
			cfg.Triggers[i].URL = v
		}
	}
	return nil
}

// webhookEnvKey maps a trigger id to its URL override, e.g. UPDATE_CRYPTO to
// WEBHOOK_UPDATE_CRYPTO.
func webhookEnvKey(id string) string {
	key := strings.ToUpper(strings.TrimSpace(id))
	key = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, key)
	return "WEBHOOK_" + key
}

// Validate rejects static tables that cannot work. Credentials are checked
// separately at startup so tests can validate partial configs.
func (c *Config) Validate() error {
	if c.Sheets.Market.Name == "" && len(c.Sheets.News) == 0 {
		return fmt.Errorf("no sheets configured")
	}
	if err := c.Sheets.Market.Layout.Validate(); err != nil {
		return fmt.Errorf("invalid market layout: %w", err)
	}
	for _, src := range c.Sheets.News {
		if src.Name == "" {
			return fmt.Errorf("news sheet without a name")
		}
		if err := src.Layout.Validate(); err != nil {
			return fmt.Errorf("invalid layout for news sheet %q: %w", src.Name, err)
		}
	}
	if c.Sheets.ReadsPerMinute < 0 || c.Sheets.Burst < 0 {
		return fmt.Errorf("sheet read limits must not be negative")
	}

	if err := c.Buckets.Validate(); err != nil {
		return fmt.Errorf("invalid bucket rules: %w", err)
	}
	if _, err := relay.NewTable(c.Triggers); err != nil {
		return fmt.Errorf("invalid triggers: %w", err)
	}
	switch strings.ToUpper(c.Relay.Method) {
	case "", "POST", "GET":
	default:
		return fmt.Errorf("unsupported relay method %q", c.Relay.Method)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Display.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	return nil
}

// Location resolves the display timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load display timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}

// SheetsOptions converts the sheets section into client options.
func (c *Config) SheetsOptions() sheets.Options {
	return sheets.Options{
		APIKey:         c.Sheets.APIKey,
		SpreadsheetID:  c.Sheets.SpreadsheetID,
		Endpoint:       c.Sheets.Endpoint,
		ReadsPerMinute: c.Sheets.ReadsPerMinute,
		Burst:          c.Sheets.Burst,
	}
}
