package normalize

import (
	"fmt"
	"strings"

	"market_dashboard/internal/market"
)

// Rule routes market rows into a bucket. A row matches when its classification
// tag contains any of Classifications and, if Geographies is non-empty, its
// geography tag contains any of Geographies. Matching is case-insensitive.
type Rule struct {
	Bucket          string   `yaml:"bucket"`
	Group           string   `yaml:"group"`
	Classifications []string `yaml:"classifications"`
	Geographies     []string `yaml:"geographies"`
}

// Rules is evaluated in order and the first matching rule wins.
type Rules []Rule

// DefaultRules mirrors the dashboard's tab layout. More specific geographies
// come before "us" so that a European row never falls through to US Indices.
func DefaultRules() Rules {
	index := []string{"index", "indices", "equity"}
	futures := []string{"future", "commodit"}
	return Rules{
		{Bucket: "European Indices", Group: "INDEX", Classifications: index, Geographies: []string{"europe", "uk", "german", "french"}},
		{Bucket: "Asian Indices", Group: "INDEX", Classifications: index, Geographies: []string{"asia", "japan", "china", "hong"}},
		{Bucket: "Latin America", Group: "INDEX", Classifications: index, Geographies: []string{"latam"}},
		{Bucket: "US Indices", Group: "INDEX", Classifications: index, Geographies: []string{"us", "america"}},
		{Bucket: "Currencies", Group: "CURRENCIES", Classifications: []string{"currenc", "fx"}},
		{Bucket: "Commodity Futures", Group: "FUTURES", Classifications: futures, Geographies: []string{"commodities"}},
		{Bucket: "US Futures", Group: "FUTURES", Classifications: futures, Geographies: []string{"us"}},
		{Bucket: "Crypto", Group: "CRYPTO", Classifications: []string{"crypto", "coin"}},
	}
}

func (r Rules) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("at least one bucket rule is required")
	}
	for i, rule := range r {
		if strings.TrimSpace(rule.Bucket) == "" {
			return fmt.Errorf("bucket rule %d has no bucket name", i)
		}
		if len(nonEmpty(rule.Classifications)) == 0 {
			return fmt.Errorf("bucket rule %q has no classification terms", rule.Bucket)
		}
	}
	return nil
}

// Classify returns the bucket for a row's classification and geography tags.
func (r Rules) Classify(classification, geography string) (string, bool) {
	classification = strings.ToLower(strings.TrimSpace(classification))
	geography = strings.ToLower(strings.TrimSpace(geography))
	if classification == "" {
		return "", false
	}

	for _, rule := range r {
		if !containsAnyFold(classification, rule.Classifications) {
			continue
		}
		if len(nonEmpty(rule.Geographies)) > 0 && !containsAnyFold(geography, rule.Geographies) {
			continue
		}
		return rule.Bucket, true
	}
	return "", false
}

// Buckets lists every distinct bucket in rule order.
func (r Rules) Buckets() []string {
	seen := make(map[string]bool)
	var buckets []string
	for _, rule := range r {
		if !seen[rule.Bucket] {
			seen[rule.Bucket] = true
			buckets = append(buckets, rule.Bucket)
		}
	}
	return buckets
}

// Tabs groups buckets by their rule group, keeping first-seen order. Rules
// without a group become a tab of their own.
func (r Rules) Tabs() []market.Tab {
	var tabs []market.Tab
	pos := make(map[string]int)
	for _, bucket := range r.Buckets() {
		group := r.groupOf(bucket)
		i, ok := pos[group]
		if !ok {
			i = len(tabs)
			pos[group] = i
			tabs = append(tabs, market.Tab{Name: group})
		}
		tabs[i].Buckets = append(tabs[i].Buckets, bucket)
	}
	return tabs
}

func (r Rules) groupOf(bucket string) string {
	for _, rule := range r {
		if rule.Bucket == bucket && rule.Group != "" {
			return rule.Group
		}
	}
	return bucket
}

func containsAnyFold(s string, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// containsAny is the case-sensitive variant used for news region markers.
func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func nonEmpty(terms []string) []string {
	var out []string
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
