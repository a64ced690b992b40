package sheets

import (
	"fmt"
	"strings"
)

// Logical column names used by the market and news layouts.
const (
	ColClassification = "classification"
	ColGeography      = "geography"
	ColName           = "name"
	ColPrice          = "price"
	ColChangePercent  = "change_percent"

	ColSource   = "source"
	ColTitle    = "title"
	ColURL      = "url"
	ColCategory = "category"
)

// Strategy selects how logical columns are located in a sheet.
type Strategy string

const (
	// StrategyFixed takes column positions straight from the layout table.
	StrategyFixed Strategy = "fixed"
	// StrategyHeader scans the header row once for case-insensitive substrings.
	StrategyHeader Strategy = "header"
)

// Layout describes where the logical columns of a sheet live.
type Layout struct {
	Strategy Strategy          `yaml:"strategy"`
	Columns  map[string]int    `yaml:"columns"`
	Headers  map[string]string `yaml:"headers"`
	MinCells int               `yaml:"min_cells"`
}

// Columns is a resolved logical-name to position table. A missing name or a
// negative position means the column is absent.
type Columns map[string]int

// Validate reports layout tables that can never resolve.
func (l Layout) Validate() error {
	switch l.Strategy {
	case "", StrategyFixed:
		for name, idx := range l.Columns {
			if idx < -1 {
				return fmt.Errorf("column %q has invalid index %d", name, idx)
			}
		}
	case StrategyHeader:
		if len(l.Headers) == 0 {
			return fmt.Errorf("header strategy requires at least one header match")
		}
	default:
		return fmt.Errorf("unknown column strategy %q", l.Strategy)
	}
	if l.MinCells < 0 {
		return fmt.Errorf("min_cells must not be negative")
	}
	return nil
}

// Resolve turns the layout into a position table. header is the first row of
// the sheet and is only consulted by the header strategy.
func (l Layout) Resolve(header []string) Columns {
	cols := make(Columns)
	if l.Strategy != StrategyHeader {
		for name, idx := range l.Columns {
			cols[name] = idx
		}
		return cols
	}

	for name, match := range l.Headers {
		cols[name] = -1
		needle := strings.ToLower(strings.TrimSpace(match))
		if needle == "" {
			continue
		}
		for i, cell := range header {
			if strings.Contains(strings.ToLower(cell), needle) {
				cols[name] = i
				break
			}
		}
	}
	return cols
}

// Index returns the position of a logical column, or -1 when absent.
func (c Columns) Index(name string) int {
	idx, ok := c[name]
	if !ok || idx < 0 {
		return -1
	}
	return idx
}

// Has reports whether the logical column was resolved.
func (c Columns) Has(name string) bool {
	return c.Index(name) >= 0
}

// Cell returns the trimmed value of a logical column in row, or "" when the
// column is absent or the row is too short.
func (c Columns) Cell(row []string, name string) string {
	idx := c.Index(name)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// MinCellsFor is the number of cells a row needs before it is considered: the
// configured minimum or one past the highest required column, whichever is larger.
func (l Layout) MinCellsFor(cols Columns, required ...string) int {
	minCells := l.MinCells
	for _, name := range required {
		if idx := cols.Index(name); idx+1 > minCells {
			minCells = idx + 1
		}
	}
	return minCells
}
