package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Re-Local/Backend/models"
	"github.com/Re-Local/Backend/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Record folds one stored play into the summary.
func (s *InsightService) Record(summary *models.CrawlSummary, p models.Play) {
	if summary.ByCategory == nil {
		summary.ByCategory = make(map[string]int)
	}
	summary.Stored++
	summary.ByCategory[p.Category]++
	if p.HasCoordinates() {
		summary.WithCoordinates++
	}
	if p.Location.VenueName == "" {
		summary.MissingVenue++
	}
	if p.Location.Address == "" {
		summary.MissingAddress++
	}
}

// Generate builds a summary over an arbitrary set of plays, e.g. the whole table.
func (s *InsightService) Generate(plays []models.Play) *models.CrawlSummary {
	summary := &models.CrawlSummary{ByCategory: make(map[string]int)}
	for _, p := range plays {
		s.Record(summary, p)
	}
	summary.Discovered = len(plays)
	summary.Extracted = len(plays)
	return summary
}

func (s *InsightService) Print(r *models.CrawlSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  CRAWL SUMMARY\n")
	fmt.Printf("%s\n\n", sep)

	fmt.Printf("  Overview\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Detail URLs discovered : %d\n", r.Discovered)
	fmt.Printf("  Pages extracted        : %d\n", r.Extracted)
	fmt.Printf("  Records stored         : %d\n", r.Stored)
	fmt.Printf("  Failed URLs            : %d\n", len(r.FailedURLs))
	fmt.Println()

	fmt.Printf("  Location coverage\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  With coordinates : %d\n", r.WithCoordinates)
	fmt.Printf("  Missing venue    : %d\n", r.MissingVenue)
	fmt.Printf("  Missing address  : %d\n", r.MissingAddress)
	fmt.Println()

	fmt.Printf("  Plays by category\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCategory) == 0 {
		fmt.Printf("  No records\n")
	} else {
		for _, cc := range sortedCategories(r.ByCategory) {
			bar := strings.Repeat("█", cc.count)
			fmt.Printf("  %-16s %s (%d)\n", cc.category, bar, cc.count)
		}
	}

	if len(r.FailedURLs) > 0 {
		fmt.Println()
		fmt.Printf("  Failed\n")
		fmt.Printf("  %s\n", thin)
		for _, u := range r.FailedURLs {
			fmt.Printf("  %s\n", u)
		}
	}

	fmt.Printf("\n%s\n\n", sep)
}

type categoryCount struct {
	category string
	count    int
}

// sortedCategories orders by count descending, then name.
func sortedCategories(m map[string]int) []categoryCount {
	out := make([]categoryCount, 0, len(m))
	for c, n := range m {
		out = append(out, categoryCount{c, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].category < out[j].category
	})
	return out
}
