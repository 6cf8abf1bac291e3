package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/utils"
)

var (
	// wonRegexp matches one won amount such as "14,000원" or "9000 원"
	wonRegexp = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+|\d+)\s*원`)
	// bareAmountRegexp matches an unlabelled amount such as "14,000"
	bareAmountRegexp = regexp.MustCompile(`^(\d{1,3}(?:,\d{3})+|\d+)$`)
	saleRegexp       = regexp.MustCompile(`(\d{1,3})\s*%`)
	ratingRegexp     = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	wonPrinter = message.NewPrinter(language.Korean)
)

// Cleaner turns raw detail-page extractions into normalized Play records.
type Cleaner struct {
	logger     *utils.Logger
	classifier Classifier
	baseURL    string
	area       string
	now        func() time.Time
}

// NewCleaner creates a Cleaner. A nil classifier selects the default
// keyword table.
func NewCleaner(logger *utils.Logger, classifier Classifier, baseURL, area string) *Cleaner {
	if classifier == nil {
		classifier = defaultClassifier
	}
	return &Cleaner{
		logger:     logger,
		classifier: classifier,
		baseURL:    baseURL,
		area:       area,
		now:        time.Now,
	}
}

// Normalize cleans every field of ext. The category always ends up inside
// the canonical taxonomy: free text that NormalizeCategory cannot place is
// replaced by the classifier's verdict on the title.
func (c *Cleaner) Normalize(ext models.Extraction) models.Play {
	title := CleanTitle(ext.Title)

	category := NormalizeCategory(ext.Category)
	if !IsCanonicalCategory(category) {
		guessed := c.classifier.Classify(title)
		if category != "" {
			c.logger.Debug("[cleaner] Unmapped category %q for %q, classified as %s", category, title, guessed)
		}
		category = guessed
	}

	poster, _ := ToAbsoluteURL(ext.PosterURL, c.baseURL)

	lat, lng := ext.Lat, ext.Lng
	if lat == nil || lng == nil {
		lat, lng = nil, nil
	}

	now := c.now()
	return models.Play{
		DetailURL: ext.DetailURL,
		Area:      c.area,
		Title:     title,
		Category:  category,
		PosterURL: poster,
		Sale:      parseSale(ext.Sale),
		Price:     c.parsePrice(ext.Price),
		Stars:     parseRating(ext.Stars),
		Location: models.Location{
			VenueName: CleanText(ext.VenueName),
			Address:   CleanAddress(ext.Address),
			Lat:       lat,
			Lng:       lng,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// parsePrice reduces a price badge to one won amount. When the badge lists
// both the regular and the discounted price, the last amount is kept.
// Examples:
//
//	"14,000원"           → "14,000원"
//	"20,000원 14,000원"  → "14,000원"
//	"14000"              → "14,000원"
func (c *Cleaner) parsePrice(raw string) string {
	raw = CleanText(raw)
	if raw == "" {
		return ""
	}

	var amount string
	if matches := wonRegexp.FindAllStringSubmatch(raw, -1); len(matches) > 0 {
		amount = matches[len(matches)-1][1]
		if len(matches) > 1 {
			c.logger.Debug("[cleaner] Multiple prices in %q, keeping %s", raw, amount)
		}
	} else if m := bareAmountRegexp.FindStringSubmatch(raw); m != nil {
		amount = m[1]
	} else {
		return ""
	}

	won, err := strconv.Atoi(strings.ReplaceAll(amount, ",", ""))
	if err != nil || won <= 0 {
		return ""
	}
	return wonPrinter.Sprintf("%d원", won)
}

// parseSale extracts a 1–100 discount percentage as "30%".
func parseSale(raw string) string {
	match := saleRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	pct, err := strconv.Atoi(match[1])
	if err != nil || pct <= 0 || pct > 100 {
		return ""
	}
	return fmt.Sprintf("%d%%", pct)
}

// parseRating extracts a 0.0–5.0 star rating. Anything else is absent.
func parseRating(raw string) *float64 {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return nil
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val < 0 || val > 5 {
		return nil
	}
	return &val
}
