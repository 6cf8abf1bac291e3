package models

// CrawlSummary holds the outcome of one crawl run.
type CrawlSummary struct {
	Discovered int
	Extracted  int
	Stored     int
	FailedURLs []string

	ByCategory      map[string]int
	WithCoordinates int
	MissingVenue    int
	MissingAddress  int
}
