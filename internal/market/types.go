package market

import "time"

// MarketItem is a single instrument row as shown on the dashboard.
type MarketItem struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// MarketModel maps a bucket name (e.g. "US Indices") to its items in sheet order.
type MarketModel map[string][]MarketItem

// Count returns the total number of items across all buckets.
func (m MarketModel) Count() int {
	n := 0
	for _, items := range m {
		n += len(items)
	}
	return n
}

// NewsItem is a headline read from one of the news sheets.
type NewsItem struct {
	Source string  `json:"source"`
	Title  string  `json:"title"`
	URL    *string `json:"url"`
}

// NewsLists partitions headlines into world news and region-specific news.
type NewsLists struct {
	Region      string     `json:"region"`
	World       []NewsItem `json:"world_news"`
	RegionItems []NewsItem `json:"region_news"`
}

// Tab groups buckets under one main dashboard tab.
type Tab struct {
	Name    string   `json:"name"`
	Buckets []string `json:"buckets"`
}

// Snapshot is one complete refresh result. A published snapshot is never mutated.
type Snapshot struct {
	Markets     MarketModel `json:"markets"`
	News        NewsLists   `json:"news"`
	Tabs        []Tab       `json:"tabs"`
	LastUpdated string      `json:"last_updated"`
	FetchedAt   time.Time   `json:"fetched_at"`
	// Missing lists news sheets that could not be read during this refresh.
	Missing []string `json:"missing,omitempty"`
	// Degraded counts numeric cells that could not be parsed and were reported as 0.
	Degraded int `json:"degraded_cells"`
}
