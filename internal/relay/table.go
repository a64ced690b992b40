package relay

import (
	"fmt"
	"strings"
)

// Definition binds a logical trigger id to an automation webhook.
type Definition struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Configured reports whether the trigger has a target URL.
func (d Definition) Configured() bool {
	return strings.TrimSpace(d.URL) != ""
}

// Table is the static trigger configuration. It is read-only after construction.
type Table struct {
	defs []Definition
	byID map[string]Definition
}

func NewTable(defs []Definition) (*Table, error) {
	t := &Table{byID: make(map[string]Definition, len(defs))}
	for i, def := range defs {
		if strings.TrimSpace(def.ID) == "" {
			return nil, fmt.Errorf("trigger %d has no id", i)
		}
		if _, dup := t.byID[def.ID]; dup {
			return nil, fmt.Errorf("duplicate trigger id %q", def.ID)
		}
		t.byID[def.ID] = def
		t.defs = append(t.defs, def)
	}
	return t, nil
}

func (t *Table) Lookup(id string) (Definition, bool) {
	def, ok := t.byID[id]
	return def, ok
}

// Definitions returns the triggers in configuration order.
func (t *Table) Definitions() []Definition {
	return append([]Definition(nil), t.defs...)
}

// DefaultDefinitions are the automation workflows the dashboard knows about.
// Only the currency and crypto workflows ship with a URL.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: "UPDATE_CURRENCIES", Label: "Update Currencies", URL: "https://selim-okums1.app.n8n.cloud/webhook/update-fx"},
		{ID: "UPDATE_CRYPTO", Label: "Update Crypto", URL: "https://selim-okums1.app.n8n.cloud/webhook/update-crypto"},
		{ID: "UPDATE_INDICES", Label: "Update Indices"},
		{ID: "UPDATE_FUTURES", Label: "Update Futures"},
		{ID: "UPDATE_NEWS_BBC", Label: "Update BBC News"},
		{ID: "UPDATE_NEWS_CNN", Label: "Update CNN News"},
		{ID: "UPDATE_NEWS_BBC_TR", Label: "Update BBC TR News"},
	}
}
