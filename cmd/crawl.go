package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Re-Local/Backend/scraper/timeticket"
	"github.com/Re-Local/Backend/services"
	"github.com/Re-Local/Backend/storage"
)

type crawlOptions struct {
	area     string
	category string
	csvPath  string
	dryRun   bool
	report   bool
}

func newCrawlCmd(a *app) *cobra.Command {
	opts := &crawlOptions{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the listing page and upsert every play it links to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.area, "area", "", "listing area code (overrides LIST_AREA)")
	f.StringVar(&opts.category, "category", "", "listing category code (overrides LIST_CATEGORY)")
	f.StringVar(&opts.csvPath, "csv", "", "seed CSV output path (overrides CSV_OUTPUT_PATH)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "keep results in memory instead of PostgreSQL")
	f.BoolVar(&opts.report, "report", true, "print a report over every stored play after the crawl")
	return cmd
}

func runCrawl(cmd *cobra.Command, a *app, opts *crawlOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if opts.area != "" {
		cfg.ListArea = opts.area
	}
	if opts.category != "" {
		cfg.ListCategory = opts.category
	}
	if opts.csvPath != "" {
		cfg.CSVOutputPath = opts.csvPath
	}
	if opts.dryRun {
		cfg.StorageDriver = "memory"
	}

	a.logger.Info("=== Timeticket crawl starting ===")
	a.logger.Info("Config: list %s | nav timeout %s | delay %s-%s",
		cfg.ListURL(), cfg.NavTimeout, cfg.DelayMin, cfg.DelayMax)

	store, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var scraperOpts []timeticket.Option
	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			a.logger.Warn("[crawl] Seed CSV disabled: %v", err)
		} else {
			defer csvWriter.Close()
			scraperOpts = append(scraperOpts, timeticket.WithSeedSink(csvWriter))
		}
	}

	browser, err := timeticket.NewBrowser(ctx, timeticket.BrowserConfig{
		ChromeBin:      cfg.ChromeBin,
		Headless:       cfg.Headless,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		Locale:         cfg.Locale,
	}, a.logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	insights := services.NewInsightService(a.logger)

	summary, runErr := timeticket.New(cfg, browser, store, a.logger, scraperOpts...).Run(ctx)
	if summary != nil {
		insights.Print(summary)
	}
	if runErr != nil {
		return fmt.Errorf("crawl: %w", runErr)
	}

	if opts.report {
		plays, err := store.FetchAll(ctx)
		if err != nil {
			a.logger.Warn("[crawl] Failed to load stored plays for the report: %v", err)
			return nil
		}
		a.logger.Info("Report over all %d stored plays", len(plays))
		insights.Print(insights.Generate(plays))
	}
	return nil
}
