package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Re-Local/Backend/models"
)

// CSVWriter writes raw listing seeds to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{"detail_url", "title", "category", "poster_url", "sale", "price", "stars", "scraped_at"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteSeeds appends one row per seed.
func (c *CSVWriter) WriteSeeds(seeds []models.Seed) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range seeds {
		scrapedAt := ""
		if !s.ScrapedAt.IsZero() {
			scrapedAt = s.ScrapedAt.Format(time.RFC3339)
		}
		row := []string{s.DetailURL, s.Title, s.Category, s.PosterURL, s.Sale, s.Price, s.Stars, scrapedAt}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
