package timeticket

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Page is one rendered browser tab. Implementations must honour ctx
// deadlines on every call; a lookup that times out is treated as a miss.
type Page interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// Document returns a snapshot of the live DOM, scripts included.
	Document(ctx context.Context) (*goquery.Document, error)
	// ClickText clicks the first clickable element whose accessible name is
	// text. It reports false when no such element exists.
	ClickText(ctx context.Context, text string) (bool, error)
}
