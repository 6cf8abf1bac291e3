package services

import (
	"time"

	"github.com/Re-Local/Backend/models"
)

// PlayView is the caller-facing shape served by the read API.
type PlayView struct {
	DetailURL string          `json:"detailUrl"`
	Area      string          `json:"area,omitempty"`
	Title     string          `json:"title"`
	Category  string          `json:"category"`
	Sale      string          `json:"sale,omitempty"`
	Price     string          `json:"price,omitempty"`
	Stars     *float64        `json:"stars,omitempty"`
	PosterURL string          `json:"posterUrl,omitempty"`
	Location  models.Location `json:"location"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PresentPlay maps a stored record onto its read-time view: decorative title
// prefixes and suffixes are removed and the category becomes a taxonomy label.
func PresentPlay(p models.Play) PlayView {
	return PlayView{
		DetailURL: p.DetailURL,
		Area:      p.Area,
		Title:     CleanTitle(p.Title),
		Category:  CategoryLabel(p.Category),
		Sale:      p.Sale,
		Price:     p.Price,
		Stars:     p.Stars,
		PosterURL: p.PosterURL,
		Location:  p.Location,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CategoryLabel maps a stored category string, possibly still in the source
// language, onto the enumerated label set.
func CategoryLabel(stored string) string {
	if c := NormalizeCategory(stored); IsCanonicalCategory(c) {
		return c
	}
	if c := NormalizeCategory(ExtractRightSideCategory(stored)); IsCanonicalCategory(c) {
		return c
	}
	return CategoryOthers
}
