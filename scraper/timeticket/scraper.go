package timeticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/Re-Local/Backend/config"
	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/utils"
)

var (
	// ErrListingFetch means the listing page could not be downloaded or parsed.
	ErrListingFetch = errors.New("listing fetch failed")
	// ErrNoListings means the listing page yielded no detail links.
	ErrNoListings = errors.New("no detail links found on listing page")
)

// Upserter persists one normalized play, merging it with any stored record.
type Upserter interface {
	Upsert(ctx context.Context, p models.Play) error
}

// SeedSink receives the raw listing seeds before any detail page is visited.
type SeedSink interface {
	WriteSeeds(seeds []models.Seed) error
}

// Scraper runs the listing → detail → normalize → upsert pipeline for one
// listing page. Detail pages are visited one at a time on a single Page.
type Scraper struct {
	listURL   string
	listing   *ListingClient
	extractor *Extractor
	cleaner   *services.Cleaner
	insights  *services.InsightService
	pacer     *utils.Pacer
	page      Page
	store     Upserter
	seeds     SeedSink
	logger    *utils.Logger
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithSeedSink records the listing seeds before extraction starts.
func WithSeedSink(sink SeedSink) Option {
	return func(s *Scraper) { s.seeds = sink }
}

// WithStrategies replaces the label lookup chain.
func WithStrategies(strategies []LabelStrategy) Option {
	return func(s *Scraper) { s.extractor.strategies = strategies }
}

// WithPacer replaces the courtesy delay between detail pages.
func WithPacer(p *utils.Pacer) Option {
	return func(s *Scraper) { s.pacer = p }
}

// WithListingClient replaces the HTTP client used for the listing page.
func WithListingClient(c *ListingClient) Option {
	return func(s *Scraper) { s.listing = c }
}

// New wires a Scraper from cfg. The page and store are owned by the caller.
func New(cfg *config.Config, page Page, store Upserter, logger *utils.Logger, opts ...Option) *Scraper {
	ecfg := DefaultExtractorConfig(cfg.BaseURL)
	ecfg.NavTimeout = cfg.NavTimeout
	ecfg.LabelTimeout = cfg.LabelTimeout
	ecfg.TabSettle = cfg.TabSettle
	ecfg.PreferSeedPoster = cfg.PreferSeedPoster

	s := &Scraper{
		listURL:   cfg.ListURL(),
		listing:   NewListingClient(cfg.BaseURL, cfg.UserAgent, cfg.AcceptLanguage, cfg.ListTimeout),
		extractor: NewExtractor(ecfg, nil, logger),
		cleaner:   services.NewCleaner(logger, nil, cfg.BaseURL, cfg.ListArea),
		insights:  services.NewInsightService(logger),
		pacer:     utils.NewPacer(cfg.DelayMin, cfg.DelayMax),
		page:      page,
		store:     store,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run crawls the listing once. Only listing failures abort the run; a bad
// detail page or a failed write is logged, counted and skipped.
func (s *Scraper) Run(ctx context.Context) (*models.CrawlSummary, error) {
	summary := &models.CrawlSummary{ByCategory: make(map[string]int)}

	s.logger.Info("[timeticket] Fetching listing %s", s.listURL)
	seeds, err := s.listing.FetchListing(ctx, s.listURL)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrListingFetch, err)
	}
	summary.Discovered = len(seeds)
	if len(seeds) == 0 {
		return summary, ErrNoListings
	}
	s.logger.Info("[timeticket] Found %d detail links", len(seeds))

	if s.seeds != nil {
		if err := s.seeds.WriteSeeds(seeds); err != nil {
			s.logger.Warn("[timeticket] Seed export failed: %v", err)
		}
	}

	for i, seed := range seeds {
		if err := s.pacer.Wait(ctx); err != nil {
			return summary, fmt.Errorf("crawl interrupted after %d of %d pages: %w", i, len(seeds), err)
		}

		ext, err := s.extractor.Extract(ctx, s.page, seed)
		if err != nil {
			if ctx.Err() != nil {
				return summary, fmt.Errorf("crawl interrupted after %d of %d pages: %w", i, len(seeds), ctx.Err())
			}
			s.logger.Warn("[timeticket] ❌ %s: %v", seed.DetailURL, err)
			summary.FailedURLs = append(summary.FailedURLs, seed.DetailURL)
			continue
		}
		summary.Extracted++

		play := s.cleaner.Normalize(ext)
		if err := s.store.Upsert(ctx, play); err != nil {
			s.logger.Error("[timeticket] Store %s: %v", play.DetailURL, err)
			summary.FailedURLs = append(summary.FailedURLs, play.DetailURL)
			continue
		}
		s.insights.Record(summary, play)

		s.logger.Info("[timeticket] ✅ (%d/%d) %s | %s | %s",
			i+1, len(seeds), orDefault(play.Title, "-"), orDefault(play.Location.VenueName, "venue not found"), play.DetailURL)
	}

	return summary, nil
}
