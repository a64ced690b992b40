package main

import (
	"market_dashboard/internal/config"
	"market_dashboard/internal/dashboard"
	"market_dashboard/internal/normalize"

	"github.com/rs/zerolog/log"
)

// newNormalizer builds the row pipeline from the static tables in cfg.
func newNormalizer(cfg *config.Config) *normalize.Normalizer {
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load display timezone")
	}

	return normalize.New(normalize.Options{
		Rules:         cfg.Buckets,
		MarketLayout:  cfg.Sheets.Market.Layout,
		RegionName:    cfg.News.RegionName,
		RegionMarkers: cfg.News.RegionMarkers,
		Location:      loc,
		TimeFormat:    cfg.Display.TimeFormat,
	})
}

// newDashboardService wires the sheet reader and the normalizer into the refresh cycle.
func newDashboardService(cfg *config.Config, fetcher dashboard.RowFetcher) *dashboard.Service {
	log.Debug().
		Str("market_sheet", cfg.Sheets.Market.Name).
		Int("news_sheets", len(cfg.Sheets.News)).
		Int("buckets", len(cfg.Buckets)).
		Msg("Building dashboard service")

	return dashboard.NewService(fetcher, newNormalizer(cfg), cfg.Sheets.Market, cfg.Sheets.News)
}
