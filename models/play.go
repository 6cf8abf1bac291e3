package models

import "time"

// Seed is the partial record harvested from a listing page card before the
// detail page is visited. Empty strings mean "not found".
type Seed struct {
	DetailURL string
	Title     string
	Category  string
	PosterURL string
	Sale      string
	Price     string
	Stars     string
	ScrapedAt time.Time
}

// Extraction holds the raw, un-normalized fields read from one detail page.
type Extraction struct {
	DetailURL string
	Title     string
	Category  string
	PosterURL string
	Sale      string
	Price     string
	Stars     string
	VenueName string
	Address   string
	Lat       *float64
	Lng       *float64
}

// Location is where a play is staged. Empty strings and nil coordinates mean
// the value is absent, which is distinct from an empty or zero value.
type Location struct {
	VenueName string   `json:"venueName,omitempty"`
	Address   string   `json:"address,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

// Play is one stored show/venue combination, keyed by its detail page URL.
type Play struct {
	ID        int64     `json:"id,omitempty"`
	DetailURL string    `json:"detailUrl"`
	Area      string    `json:"area,omitempty"`
	Title     string    `json:"title,omitempty"`
	Category  string    `json:"category,omitempty"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Sale      string    `json:"sale,omitempty"`
	Price     string    `json:"price,omitempty"`
	Stars     *float64  `json:"stars,omitempty"`
	Location  Location  `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasCoordinates reports whether both lat and lng are present.
func (p *Play) HasCoordinates() bool {
	return p.Location.Lat != nil && p.Location.Lng != nil
}

// MergePlay applies incoming on top of existing: every field present in
// incoming replaces the stored value, absent fields keep the stored value.
// CreatedAt always comes from existing unless it was never set.
func MergePlay(existing, incoming Play) Play {
	out := existing
	out.DetailURL = incoming.DetailURL

	mergeString(&out.Area, incoming.Area)
	mergeString(&out.Title, incoming.Title)
	mergeString(&out.Category, incoming.Category)
	mergeString(&out.PosterURL, incoming.PosterURL)
	mergeString(&out.Sale, incoming.Sale)
	mergeString(&out.Price, incoming.Price)
	if incoming.Stars != nil {
		out.Stars = incoming.Stars
	}
	mergeString(&out.Location.VenueName, incoming.Location.VenueName)
	mergeString(&out.Location.Address, incoming.Location.Address)
	if incoming.Location.Lat != nil {
		out.Location.Lat = incoming.Location.Lat
	}
	if incoming.Location.Lng != nil {
		out.Location.Lng = incoming.Location.Lng
	}

	if out.CreatedAt.IsZero() {
		out.CreatedAt = incoming.CreatedAt
	}
	if !incoming.UpdatedAt.IsZero() {
		out.UpdatedAt = incoming.UpdatedAt
	}
	return out
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
