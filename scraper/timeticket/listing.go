package timeticket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/utils"
)

const (
	detailLinkSelector = `a[href^="/product/"]`
	cardTitleSelector  = ".title, .subject, .tit, .name, strong"
)

// Card containers in priority order. A bare div is only a last resort since
// cards nest the link inside thumbnail wrappers.
var cardSelectors = []string{
	"li, .item, .product, .list_item",
	"div",
}

// Card badges, each list tried in order.
var (
	cardSaleSelectors  = []string{".sale, .discount, .dc, .percent"}
	cardPriceSelectors = []string{".sale_price, .price_sale, .dc_price", ".price, .cost"}
	cardStarsSelectors = []string{".stars, .star, .rating, .score, .grade"}
)

// ListingClient downloads and parses listing pages over plain HTTP. The
// listing is server-rendered, so no browser is needed here.
type ListingClient struct {
	client         *http.Client
	baseURL        string
	userAgent      string
	acceptLanguage string
	now            func() time.Time
}

// NewListingClient creates a ListingClient whose requests give up after timeout.
func NewListingClient(baseURL, userAgent, acceptLanguage string, timeout time.Duration) *ListingClient {
	return &ListingClient{
		client:         &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		userAgent:      userAgent,
		acceptLanguage: acceptLanguage,
		now:            time.Now,
	}
}

// FetchListing GETs the listing page and returns its seeds in document order.
func (c *ListingClient) FetchListing(ctx context.Context, listURL string) ([]models.Seed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("listing: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing: GET %s: %w", listURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing: GET %s: unexpected status %d", listURL, resp.StatusCode)
	}

	seeds, err := ParseListing(resp.Body, c.baseURL)
	if err != nil {
		return nil, err
	}
	scrapedAt := c.now()
	for i := range seeds {
		seeds[i].ScrapedAt = scrapedAt
	}
	return seeds, nil
}

// ParseListing extracts one seed per unique detail link. Links whose href
// cannot be made absolute are skipped; missing card fields stay empty.
func ParseListing(r io.Reader, base string) ([]models.Seed, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("listing: parse html: %w", err)
	}

	seen := utils.NewURLSet()
	var seeds []models.Seed

	doc.Find(detailLinkSelector).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		detailURL, ok := services.ToAbsoluteURL(href, base)
		if !ok || !seen.Add(detailURL) {
			return
		}

		card := cardFor(link)
		seeds = append(seeds, models.Seed{
			DetailURL: detailURL,
			Title:     cardTitle(card),
			Category:  cardCategory(card),
			PosterURL: cardPoster(card, base),
			Sale:      cardText(card, cardSaleSelectors),
			Price:     cardText(card, cardPriceSelectors),
			Stars:     cardText(card, cardStarsSelectors),
		})
	})

	return seeds, nil
}

// cardFor returns the nearest container matching the highest-priority card
// selector, or the link itself when the link sits outside any container.
func cardFor(link *goquery.Selection) *goquery.Selection {
	for _, sel := range cardSelectors {
		if card := link.Closest(sel); card.Length() > 0 {
			return card
		}
	}
	return link
}

func cardText(card *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := services.CleanText(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func cardTitle(card *goquery.Selection) string {
	if title := services.CleanText(card.Find(cardTitleSelector).First().Text()); title != "" {
		return title
	}
	alt, _ := card.Find("img[alt]").First().Attr("alt")
	return services.CleanText(alt)
}

// cardCategory keeps only canonical categories so a noisy card never
// shadows the genre printed on the detail page.
func cardCategory(card *goquery.Selection) string {
	text := card.Text()
	raw := services.ExtractRightSideCategory(text)
	if raw == "" {
		raw = text
	}
	if category := services.NormalizeCategory(raw); services.IsCanonicalCategory(category) {
		return category
	}
	return ""
}

func cardPoster(card *goquery.Selection, base string) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	poster, _ := services.ToAbsoluteURL(imageSource(img), base)
	return poster
}

// imageSource prefers lazy-load attributes over src, which is often a placeholder.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-original", "src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
