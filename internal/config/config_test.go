package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"market_dashboard/internal/sheets"
)

var envKeys = []string{
	"SPREADSHEET_ID", "GOOGLE_API_KEY", "HTTP_ADDR", "DISPLAY_TIMEZONE",
	"REFRESH_INTERVAL", "RELAY_AWAIT_RESPONSE", "WEBHOOK_UPDATE_CURRENCIES", "WEBHOOK_UPDATE_INDICES",
}

// clearEnv blanks every override so the host environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":8080")
	}
	if cfg.Sheets.Market.Name != "Core markets" {
		t.Errorf("Sheets.Market.Name = %q, want %q", cfg.Sheets.Market.Name, "Core markets")
	}
	if len(cfg.Sheets.News) != 3 {
		t.Errorf("Expected 3 news sheets, got %d", len(cfg.Sheets.News))
	}
	if len(cfg.Triggers) != 7 {
		t.Errorf("Expected 7 triggers, got %d", len(cfg.Triggers))
	}
	if !cfg.Relay.AwaitResponse {
		t.Error("Expected relay to await responses by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"
sheets:
  spreadsheet_id: "sheet-abc"
  reads_per_minute: 30
  market:
    name: "Core markets"
    layout:
      strategy: header
      headers:
        classification: "class"
        geography: "geo"
        name: "name"
        price: "price"
        change_percent: "change"
  news:
    - name: "News"
      label: "News"
      layout:
        strategy: header
        headers:
          source: "source"
          title: "title"
          url: "url"
          category: "category"
display:
  timezone: "Europe/Istanbul"
  refresh_interval: 90s
news:
  region_name: "Türkiye"
buckets:
  - bucket: "Crypto"
    group: "CRYPTO"
    classifications: ["crypto", "coins"]
triggers:
  - id: "UPDATE_CRYPTO"
    label: "Update Crypto"
    url: "https://automation.example/crypto"
relay:
  await_response: false
  method: "GET"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:9000")
	}
	if cfg.Sheets.SpreadsheetID != "sheet-abc" {
		t.Errorf("Sheets.SpreadsheetID = %q, want %q", cfg.Sheets.SpreadsheetID, "sheet-abc")
	}
	if cfg.Sheets.Burst != 4 {
		t.Errorf("Expected default burst to survive partial file, got %d", cfg.Sheets.Burst)
	}
	if cfg.Sheets.Market.Layout.Strategy != sheets.StrategyHeader {
		t.Errorf("Expected header strategy, got %q", cfg.Sheets.Market.Layout.Strategy)
	}
	if len(cfg.Sheets.News) != 1 || cfg.Sheets.News[0].Name != "News" {
		t.Errorf("Expected a single News sheet, got %+v", cfg.Sheets.News)
	}
	if cfg.Display.RefreshInterval != 90*time.Second {
		t.Errorf("Display.RefreshInterval = %v, want 90s", cfg.Display.RefreshInterval)
	}
	if cfg.News.RegionName != "Türkiye" {
		t.Errorf("News.RegionName = %q, want %q", cfg.News.RegionName, "Türkiye")
	}
	if len(cfg.Buckets) != 1 || cfg.Buckets[0].Bucket != "Crypto" {
		t.Errorf("Expected one Crypto rule, got %+v", cfg.Buckets)
	}
	if len(cfg.Triggers) != 1 || cfg.Triggers[0].URL != "https://automation.example/crypto" {
		t.Errorf("Unexpected triggers %+v", cfg.Triggers)
	}
	if cfg.Relay.AwaitResponse || cfg.Relay.Method != "GET" {
		t.Errorf("Unexpected relay config %+v", cfg.Relay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected config to validate, got %v", err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Istanbul" {
		t.Errorf("Expected Europe/Istanbul location, got %v (%v)", loc, err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server: [unterminated")

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_API_KEY", "env-key")
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("REFRESH_INTERVAL", "30s")
	t.Setenv("DISPLAY_TIMEZONE", "Europe/Istanbul")
	t.Setenv("RELAY_AWAIT_RESPONSE", "false")
	t.Setenv("WEBHOOK_UPDATE_INDICES", "https://automation.example/indices")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Sheets.SpreadsheetID != "env-sheet" || cfg.Sheets.APIKey != "env-key" {
		t.Errorf("Expected sheet credentials from env, got %+v", cfg.Sheets)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":7070")
	}
	if cfg.Display.RefreshInterval != 30*time.Second {
		t.Errorf("Expected 30s refresh interval, got %v", cfg.Display.RefreshInterval)
	}
	if cfg.Display.Timezone != "Europe/Istanbul" {
		t.Errorf("Expected Europe/Istanbul, got %q", cfg.Display.Timezone)
	}
	if cfg.Relay.AwaitResponse {
		t.Error("Expected RELAY_AWAIT_RESPONSE=false to disable awaiting")
	}

	for _, def := range cfg.Triggers {
		if def.ID == "UPDATE_INDICES" && def.URL != "https://automation.example/indices" {
			t.Errorf("Expected WEBHOOK_UPDATE_INDICES override, got %q", def.URL)
		}
	}

	opts := cfg.SheetsOptions()
	if opts.APIKey != "env-key" || opts.SpreadsheetID != "env-sheet" || opts.ReadsPerMinute != 60 {
		t.Errorf("Unexpected sheets options %+v", opts)
	}
}

func TestEnvOverrideErrors(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REFRESH_INTERVAL", "often"},
		{"RELAY_AWAIT_RESPONSE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Expected error mentioning %s, got %v", tt.key, err)
			}
		})
	}
}

func TestWebhookEnvKey(t *testing.T) {
	tests := map[string]string{
		"UPDATE_CRYPTO":   "WEBHOOK_UPDATE_CRYPTO",
		"update-news-bbc": "WEBHOOK_UPDATE_NEWS_BBC",
		" fx ":            "WEBHOOK_FX",
	}
	for id, want := range tests {
		if got := webhookEnvKey(id); got != want {
			t.Errorf("webhookEnvKey(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sheets", func(c *Config) { c.Sheets.Market.Name = ""; c.Sheets.News = nil }},
		{"unknown strategy", func(c *Config) { c.Sheets.Market.Layout.Strategy = "magic" }},
		{"negative column", func(c *Config) { c.Sheets.Market.Layout.Columns = map[string]int{"price": -3} }},
		{"unnamed news sheet", func(c *Config) { c.Sheets.News[0].Name = "" }},
		{"empty rules", func(c *Config) { c.Buckets = nil }},
		{"rule without terms", func(c *Config) { c.Buckets[0].Classifications = nil }},
		{"duplicate trigger", func(c *Config) { c.Triggers = append(c.Triggers, c.Triggers[0]) }},
		{"trigger without id", func(c *Config) { c.Triggers[0].ID = "" }},
		{"bad method", func(c *Config) { c.Relay.Method = "PUT" }},
		{"bad timezone", func(c *Config) { c.Display.Timezone = "Mars/Olympus" }},
		{"negative limits", func(c *Config) { c.Sheets.Burst = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestValidateAllowsUnconfiguredTriggerURL(t *testing.T) {
	cfg := Default()
	cfg.Triggers[0].URL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected empty trigger URL to be allowed, got %v", err)
	}
}
