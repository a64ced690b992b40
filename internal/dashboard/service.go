// Package dashboard runs refresh cycles: it reads the market and news sheets
// concurrently, normalizes them and publishes the result as one immutable
// snapshot.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"market_dashboard/internal/market"
	"market_dashboard/internal/normalize"
	"market_dashboard/internal/sheets"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RowFetcher reads a sheet range as rows of strings. *sheets.Client implements it.
type RowFetcher interface {
	FetchRows(ctx context.Context, range_ string) ([][]string, error)
}

// SheetSource names a sheet and, optionally, the A1 range to read from it.
type SheetSource struct {
	Name   string        `yaml:"name"`
	Range  string        `yaml:"range"`
	Label  string        `yaml:"label"`
	Layout sheets.Layout `yaml:"layout"`
}

func (s SheetSource) rangeName() string {
	if s.Range != "" {
		return s.Range
	}
	return s.Name
}

// FetchError reports that the primary market sheet could not be read. It is
// the only error a refresh cycle returns.
type FetchError struct {
	Sheet string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch sheet %q: %v", e.Sheet, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Service struct {
	fetcher    RowFetcher
	normalizer *normalize.Normalizer
	market     SheetSource
	news       []SheetSource

	current atomic.Pointer[market.Snapshot]
	lastErr atomic.Pointer[FetchError]

	// Refresh may run from the ticker and from the API at the same time.
	// Cycles are numbered when they start and only publish if no later
	// cycle has published already.
	cycles    atomic.Uint64
	publishMu sync.Mutex
	published uint64
}

func NewService(fetcher RowFetcher, normalizer *normalize.Normalizer, marketSheet SheetSource, news []SheetSource) *Service {
	return &Service{
		fetcher:    fetcher,
		normalizer: normalizer,
		market:     marketSheet,
		news:       news,
	}
}

// Current returns the latest published snapshot, or nil before the first
// successful refresh. The returned snapshot must not be modified.
func (s *Service) Current() *market.Snapshot {
	return s.current.Load()
}

// LastError returns the error of the most recent failed refresh, or nil if the
// most recent refresh succeeded.
func (s *Service) LastError() *FetchError {
	return s.lastErr.Load()
}

// Refresh runs one cycle. A market sheet failure is returned as *FetchError
// and leaves the previous snapshot in place. A news sheet failure empties that
// source and is recorded in Snapshot.Missing.
func (s *Service) Refresh(ctx context.Context) (*market.Snapshot, error) {
	cycle := s.cycles.Add(1)
	start := time.Now()
	log.Debug().
		Str("market_sheet", s.market.Name).
		Int("news_sheets", len(s.news)).
		Msg("Starting refresh cycle")

	var (
		g          errgroup.Group
		marketRows [][]string
		newsRows   = make([][][]string, len(s.news))
		newsErrs   = make([]error, len(s.news))
	)

	if s.market.Name != "" {
		g.Go(func() error {
			rows, err := s.fetcher.FetchRows(ctx, s.market.rangeName())
			if err != nil {
				return &FetchError{Sheet: s.market.Name, Err: err}
			}
			marketRows = rows
			return nil
		})
	}

	for i, src := range s.news {
		g.Go(func() error {
			rows, err := s.fetcher.FetchRows(ctx, src.rangeName())
			if err != nil {
				newsErrs[i] = err
				return nil
			}
			newsRows[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = &FetchError{Sheet: s.market.Name, Err: err}
		}
		s.publish(cycle, nil, fetchErr)
		log.Error().
			Err(fetchErr.Err).
			Str("sheet", fetchErr.Sheet).
			Msg("Failed to fetch market data")
		return nil, fetchErr
	}

	var (
		inputs  []normalize.NewsInput
		missing []string
	)
	for i, src := range s.news {
		if newsErrs[i] != nil {
			log.Warn().
				Err(newsErrs[i]).
				Str("sheet", src.Name).
				Msg("News sheet unavailable, continuing without it")
			missing = append(missing, src.Name)
			continue
		}
		inputs = append(inputs, normalize.NewsInput{
			Label:  src.Label,
			Layout: src.Layout,
			Rows:   newsRows[i],
		})
	}

	snapshot := s.normalizer.Normalize(marketRows, inputs)
	snapshot.Missing = missing

	if !s.publish(cycle, snapshot, nil) {
		log.Debug().Uint64("cycle", cycle).Msg("Newer refresh already published, discarding result")
		return snapshot, nil
	}

	log.Info().
		Int("market_items", snapshot.Markets.Count()).
		Int("world_news", len(snapshot.News.World)).
		Int("region_news", len(snapshot.News.RegionItems)).
		Strs("missing", missing).
		Dur("elapsed", time.Since(start)).
		Msg("Refresh cycle complete")

	return snapshot, nil
}

// publish stores the outcome of cycle unless a later cycle already published.
// A failed cycle keeps the current snapshot and only records its error.
func (s *Service) publish(cycle uint64, snapshot *market.Snapshot, fetchErr *FetchError) bool {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if cycle < s.published {
		return false
	}
	s.published = cycle
	if snapshot != nil {
		s.current.Store(snapshot)
	}
	s.lastErr.Store(fetchErr)
	return true
}

// Run refreshes immediately and then on every tick until ctx is done. A
// non-positive interval refreshes once and returns.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Starting dashboard refresh loop")

	s.Refresh(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Dashboard refresh loop stopped")
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
