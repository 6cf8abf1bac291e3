package timeticket

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/utils"
)

// ExtractorConfig holds the timing budget and the site vocabulary used to
// find fields on a detail page.
type ExtractorConfig struct {
	BaseURL          string
	NavTimeout       time.Duration
	LabelTimeout     time.Duration
	SnapshotTimeout  time.Duration
	TabSettle        time.Duration
	PreferSeedPoster bool

	VenueLabels      []string
	AddressLabels    []string
	GenreLabels      []string
	LocationTab      string
	VenueSelectors   string
	AddressSelectors string
}

// DefaultExtractorConfig returns the settings tuned for timeticket detail pages.
func DefaultExtractorConfig(baseURL string) ExtractorConfig {
	return ExtractorConfig{
		BaseURL:          baseURL,
		NavTimeout:       30 * time.Second,
		LabelTimeout:     400 * time.Millisecond,
		SnapshotTimeout:  5 * time.Second,
		TabSettle:        300 * time.Millisecond,
		VenueLabels:      []string{"공연장", "장소", "Venue"},
		AddressLabels:    []string{"주소", "Address"},
		GenreLabels:      []string{"장르", "Genre"},
		LocationTab:      "장소",
		VenueSelectors:   ".theater, .place, .venue, .hall, .place-name",
		AddressSelectors: ".address, .addr, .place-address",
	}
}

const (
	titleSelector    = "h1, .title, .tit, .product_title"
	categorySelector = ".category, .genre, .tag, .cate"
	posterSelector   = ".poster img, .product_view img, .gallery img"
)

// Extractor reads one detail page into a raw models.Extraction.
type Extractor struct {
	cfg        ExtractorConfig
	strategies []LabelStrategy
	logger     *utils.Logger
}

// NewExtractor creates an Extractor. A nil strategies slice selects
// DefaultLabelStrategies.
func NewExtractor(cfg ExtractorConfig, strategies []LabelStrategy, logger *utils.Logger) *Extractor {
	if strategies == nil {
		strategies = DefaultLabelStrategies
	}
	return &Extractor{cfg: cfg, strategies: strategies, logger: logger}
}

// Extract visits seed.DetailURL and collects every field it can find.
// Only a navigation failure is an error; missing fields are left empty.
//
// Title, category and poster are read before the location tab is clicked,
// since the click may swap the visible content.
func (e *Extractor) Extract(ctx context.Context, page Page, seed models.Seed) (models.Extraction, error) {
	ext := models.Extraction{
		DetailURL: seed.DetailURL,
		Sale:      seed.Sale,
		Price:     seed.Price,
		Stars:     seed.Stars,
	}

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavTimeout)
	err := page.Navigate(navCtx, seed.DetailURL)
	cancel()
	if err != nil {
		return ext, fmt.Errorf("navigate %s: %w", seed.DetailURL, err)
	}

	doc := e.snapshot(ctx, page)
	ext.Title = e.title(seed, doc)
	ext.Category = e.category(ctx, page, seed, doc)
	ext.PosterURL = e.poster(seed, doc)

	var clicked bool
	ext.VenueName, ext.Address, clicked = e.location(ctx, page)

	if clicked {
		if fresh := e.snapshot(ctx, page); fresh != nil {
			doc = fresh
		}
	}
	if ext.VenueName == "" {
		ext.VenueName = firstText(doc, e.cfg.VenueSelectors)
	}
	if ext.Address == "" {
		ext.Address = firstText(doc, e.cfg.AddressSelectors)
	}
	ext.Lat, ext.Lng = ExtractCoordinates(doc)

	return ext, nil
}

func (e *Extractor) snapshot(ctx context.Context, page Page) *goquery.Document {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.SnapshotTimeout)
	defer cancel()
	doc, err := page.Document(sctx)
	if err != nil {
		e.logger.Debug("[extractor] Snapshot failed: %v", err)
		return nil
	}
	return doc
}

func (e *Extractor) title(seed models.Seed, doc *goquery.Document) string {
	if seed.Title != "" {
		return services.CleanTitle(seed.Title)
	}
	if doc == nil {
		return ""
	}
	if t := services.CleanText(doc.Find("head title").First().Text()); t != "" {
		return services.CleanTitle(t)
	}
	if t := services.CleanText(doc.Find(`meta[property="og:title"]`).AttrOr("content", "")); t != "" {
		return services.CleanTitle(t)
	}
	return services.CleanTitle(firstText(doc, titleSelector))
}

// category returns free text; classification into the canonical taxonomy
// happens in services.Cleaner.
func (e *Extractor) category(ctx context.Context, page Page, seed models.Seed, doc *goquery.Document) string {
	if seed.Category != "" {
		return seed.Category
	}
	raw := lookupLabel(ctx, page, e.strategies, e.cfg.GenreLabels, e.cfg.LabelTimeout)
	if raw == "" {
		raw = firstText(doc, categorySelector)
	}
	if right := services.ExtractRightSideCategory(raw); right != "" {
		raw = right
	}
	return services.NormalizeCategory(raw)
}

func (e *Extractor) poster(seed models.Seed, doc *goquery.Document) string {
	if e.cfg.PreferSeedPoster && seed.PosterURL != "" {
		return seed.PosterURL
	}
	if doc != nil {
		if og, ok := services.ToAbsoluteURL(doc.Find(`meta[property="og:image"]`).AttrOr("content", ""), e.cfg.BaseURL); ok {
			return og
		}
		if img := doc.Find(posterSelector).First(); img.Length() > 0 {
			if src, ok := services.ToAbsoluteURL(imageSource(img), e.cfg.BaseURL); ok {
				return src
			}
		}
	}
	return seed.PosterURL
}

// location runs the label chain for venue and address, opening the
// location tab and retrying when either is still missing.
func (e *Extractor) location(ctx context.Context, page Page) (venue, address string, clicked bool) {
	venue = lookupLabel(ctx, page, e.strategies, e.cfg.VenueLabels, e.cfg.LabelTimeout)
	address = lookupLabel(ctx, page, e.strategies, e.cfg.AddressLabels, e.cfg.LabelTimeout)
	if venue != "" && address != "" {
		return venue, address, false
	}

	if clicked = e.openLocationTab(ctx, page); !clicked {
		return venue, address, false
	}
	if venue == "" {
		venue = lookupLabel(ctx, page, e.strategies, e.cfg.VenueLabels, e.cfg.LabelTimeout)
	}
	if address == "" {
		address = lookupLabel(ctx, page, e.strategies, e.cfg.AddressLabels, e.cfg.LabelTimeout)
	}
	return venue, address, true
}

func (e *Extractor) openLocationTab(ctx context.Context, page Page) bool {
	if e.cfg.LocationTab == "" {
		return false
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.LabelTimeout)
	ok, err := page.ClickText(cctx, e.cfg.LocationTab)
	cancel()
	if err != nil || !ok {
		return false
	}
	settle(ctx, e.cfg.TabSettle)
	return true
}
