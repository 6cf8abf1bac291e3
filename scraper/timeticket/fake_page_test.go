package timeticket

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// fakePage serves canned HTML per URL. A page listed in afterTab switches to
// that markup once the location tab is clicked.
type fakePage struct {
	mu       sync.Mutex
	pages    map[string]string
	afterTab map[string]string
	navErr   map[string]error

	current   string
	tabOpen   bool
	visited   []string
	clicks    []string
	snapshots int
}

func newFakePage() *fakePage {
	return &fakePage{
		pages:    make(map[string]string),
		afterTab: make(map[string]string),
		navErr:   make(map[string]error),
	}
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, url)
	if err := f.navErr[url]; err != nil {
		return err
	}
	if _, ok := f.pages[url]; !ok {
		return fmt.Errorf("no page for %s", url)
	}
	f.current = url
	f.tabOpen = false
	return ctx.Err()
}

func (f *fakePage) Document(ctx context.Context) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	html := f.pages[f.current]
	if alt, ok := f.afterTab[f.current]; ok && f.tabOpen {
		html = alt
	}
	f.snapshots++
	f.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakePage) ClickText(ctx context.Context, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, text)
	if _, ok := f.afterTab[f.current]; !ok || text != "장소" {
		return false, nil
	}
	f.tabOpen = true
	return true, ctx.Err()
}
