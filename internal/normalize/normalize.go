// Package normalize turns raw spreadsheet rows into the dashboard model.
//
// Nothing here fails on bad cell data: short rows are skipped, rows that match
// no bucket are dropped and unparsable numbers become 0. The only side effect
// is a single clock read for the "last updated" stamp.
package normalize

import (
	"time"

	"market_dashboard/internal/market"
	"market_dashboard/internal/sheets"

	"github.com/rs/zerolog/log"
)

// minMarketCells is the smallest market row that can carry every field.
const minMarketCells = 5

const (
	defaultSource     = "News"
	defaultTimeFormat = "1/2/2006, 3:04:05 PM"
)

// Options configures a Normalizer. Zero values fall back to the defaults of
// the original dashboard.
type Options struct {
	Rules         Rules
	MarketLayout  sheets.Layout
	RegionName    string
	RegionMarkers []string
	Location      *time.Location
	TimeFormat    string
	Now           func() time.Time
}

// NewsInput is the raw content of one news sheet.
type NewsInput struct {
	// Label is used as the source when the sheet has no source column.
	Label  string
	Layout sheets.Layout
	Rows   [][]string
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultRules()
	}
	if opts.MarketLayout.Strategy == "" && len(opts.MarketLayout.Columns) == 0 {
		opts.MarketLayout = DefaultMarketLayout()
	}
	if opts.RegionName == "" {
		opts.RegionName = "Turkey"
	}
	if len(opts.RegionMarkers) == 0 {
		opts.RegionMarkers = DefaultRegionMarkers()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = defaultTimeFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Normalizer{opts: opts}
}

// DefaultMarketLayout is the "Core markets" sheet: classification, geography,
// name, price, change percent in columns A to E.
func DefaultMarketLayout() sheets.Layout {
	return sheets.Layout{
		Strategy: sheets.StrategyFixed,
		Columns: map[string]int{
			sheets.ColClassification: 0,
			sheets.ColGeography:      1,
			sheets.ColName:           2,
			sheets.ColPrice:          3,
			sheets.ColChangePercent:  4,
		},
		MinCells: minMarketCells,
	}
}

// DefaultNewsLayout is a per-source news sheet with the title in column A and
// the link in column B.
func DefaultNewsLayout() sheets.Layout {
	return sheets.Layout{
		Strategy: sheets.StrategyFixed,
		Columns: map[string]int{
			sheets.ColTitle:    0,
			sheets.ColURL:      1,
			sheets.ColSource:   -1,
			sheets.ColCategory: -1,
		},
	}
}

func DefaultRegionMarkers() []string {
	return []string{"TR", "Turkey", "TURKEY", "Türkiye"}
}

// Normalize builds a complete snapshot from the market sheet and the news
// sheets. Either input may be empty.
func (n *Normalizer) Normalize(marketRows [][]string, news []NewsInput) *market.Snapshot {
	markets, degraded := n.normalizeMarkets(marketRows)
	now := n.opts.Now().In(n.opts.Location)

	snapshot := &market.Snapshot{
		Markets:     markets,
		News:        n.normalizeNews(news),
		Tabs:        n.opts.Rules.Tabs(),
		LastUpdated: now.Format(n.opts.TimeFormat),
		FetchedAt:   now,
		Degraded:    degraded,
	}

	log.Debug().
		Int("market_items", markets.Count()).
		Int("world_news", len(snapshot.News.World)).
		Int("region_news", len(snapshot.News.RegionItems)).
		Int("degraded_cells", degraded).
		Msg("Normalized sheet data")

	return snapshot
}

func (n *Normalizer) normalizeMarkets(rows [][]string) (market.MarketModel, int) {
	model := make(market.MarketModel)
	for _, bucket := range n.opts.Rules.Buckets() {
		model[bucket] = []market.MarketItem{}
	}
	if len(rows) == 0 {
		return model, 0
	}

	layout := n.opts.MarketLayout
	cols := layout.Resolve(rows[0])
	minCells := max(minMarketCells, layout.MinCellsFor(cols,
		sheets.ColClassification, sheets.ColGeography, sheets.ColName, sheets.ColPrice, sheets.ColChangePercent))

	degraded := 0
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if !isValidSheetRow(row, i+1, minCells) {
			continue
		}

		bucket, ok := n.opts.Rules.Classify(cols.Cell(row, sheets.ColClassification), cols.Cell(row, sheets.ColGeography))
		if !ok {
			log.Debug().
				Int("row", i+1).
				Str("classification", cols.Cell(row, sheets.ColClassification)).
				Str("geography", cols.Cell(row, sheets.ColGeography)).
				Msg("Dropping row with no matching bucket")
			continue
		}

		item, bad := extractMarketItem(row, i+1, cols)
		degraded += bad
		model[bucket] = append(model[bucket], item)
	}
	return model, degraded
}

// isValidSheetRow checks if a row has sufficient columns
func isValidSheetRow(row []string, rowNum, minCells int) bool {
	if len(row) < minCells {
		log.Debug().
			Int("row", rowNum).
			Int("columns", len(row)).
			Msg("Skipping row with insufficient columns")
		return false
	}
	return true
}

// extractMarketItem parses one market row. The second return value counts the
// non-empty numeric cells that could not be parsed.
func extractMarketItem(row []string, rowNum int, cols sheets.Columns) (market.MarketItem, int) {
	rawPrice := cols.Cell(row, sheets.ColPrice)
	rawChange := cols.Cell(row, sheets.ColChangePercent)

	price, priceOK := ParsePrice(rawPrice)
	change, changeOK := ParsePercent(rawChange)

	bad := 0
	if !priceOK && rawPrice != "" {
		bad++
		log.Debug().Int("row", rowNum).Str("price", rawPrice).Msg("Unparsable price, using 0")
	}
	if !changeOK && rawChange != "" {
		bad++
		log.Debug().Int("row", rowNum).Str("change_percent", rawChange).Msg("Unparsable change percent, using 0")
	}

	return market.MarketItem{
		Name:          cols.Cell(row, sheets.ColName),
		Price:         price,
		ChangePercent: change,
	}, bad
}

func (n *Normalizer) normalizeNews(inputs []NewsInput) market.NewsLists {
	lists := market.NewsLists{
		Region:      n.opts.RegionName,
		World:       []market.NewsItem{},
		RegionItems: []market.NewsItem{},
	}

	for _, input := range inputs {
		if len(input.Rows) == 0 {
			continue
		}
		layout := input.Layout
		if layout.Strategy == "" && len(layout.Columns) == 0 {
			layout = DefaultNewsLayout()
		}
		cols := layout.Resolve(input.Rows[0])

		for i := 1; i < len(input.Rows); i++ {
			row := input.Rows[i]
			title := cols.Cell(row, sheets.ColTitle)
			if title == "" {
				continue
			}

			source := ""
			if cols.Has(sheets.ColSource) {
				source = cols.Cell(row, sheets.ColSource)
			}
			item := market.NewsItem{
				Source: resolveSource(source, input.Label),
				Title:  title,
			}
			if url := cols.Cell(row, sheets.ColURL); url != "" {
				item.URL = &url
			}

			regional := containsAny(item.Source, n.opts.RegionMarkers)
			if !regional && cols.Has(sheets.ColCategory) {
				regional = containsAny(cols.Cell(row, sheets.ColCategory), n.opts.RegionMarkers)
			}
			if regional {
				lists.RegionItems = append(lists.RegionItems, item)
			} else {
				lists.World = append(lists.World, item)
			}
		}
	}
	return lists
}

func resolveSource(column, label string) string {
	switch {
	case column != "":
		return column
	case label != "":
		return label
	default:
		return defaultSource
	}
}
