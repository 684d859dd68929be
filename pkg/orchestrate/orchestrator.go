package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"records-scraper/pkg/config"
	"records-scraper/pkg/extract"
	"records-scraper/pkg/fetch"
	"records-scraper/pkg/models"
	"records-scraper/pkg/plan"
	"records-scraper/pkg/progress"
	"records-scraper/pkg/schedule"
	"records-scraper/pkg/utils"
)

// Orchestrator drives one full run: enumerate listing pages, extract links,
// plan destination paths, schedule retrievals, and drain outcomes into the
// progress log. It owns the link and task sets for the run; the scheduler
// borrows the tasks only for dispatch.
type Orchestrator struct {
	cfg       *config.AppConfig
	client    *http.Client
	fetcher   fetch.DocumentFetcher
	extractor *extract.LinkExtractor
	scheduler *schedule.Scheduler
	limiter   *fetch.RateLimiter
	progress  *progress.ProgressLog
	log       *logrus.Entry
}

// New creates an Orchestrator
func New(cfg *config.AppConfig, client *http.Client, fetcher fetch.DocumentFetcher, extractor *extract.LinkExtractor, scheduler *schedule.Scheduler, limiter *fetch.RateLimiter, prog *progress.ProgressLog, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		client:    client,
		fetcher:   fetcher,
		extractor: extractor,
		scheduler: scheduler,
		limiter:   limiter,
		progress:  prog,
		log:       log,
	}
}

// Run executes the pipeline end to end and returns the run summary. The
// returned error covers setup-level failures only (robots disallow,
// unusable base URL); per-page and per-document failures are reflected in
// the summary, not the error.
func (o *Orchestrator) Run(ctx context.Context) (models.RunSummary, error) {
	if o.cfg.CheckRobots {
		if err := o.checkRobots(ctx); err != nil {
			return o.progress.Summarize(), err
		}
	}

	links, err := o.DiscoverLinks(ctx)
	if err != nil {
		return o.progress.Summarize(), err
	}
	o.log.Infof("Discovered %d document links across years %d-%d", len(links), o.cfg.Years.From, o.cfg.Years.To)

	tasks := plan.Plan(links, o.cfg.OutputDir)
	for outcome := range o.scheduler.Run(ctx, tasks) {
		o.progress.Record(outcome)
	}

	return o.progress.Summarize(), nil
}

// DiscoverLinks fetches every listing page in the configured year range and
// extracts its document links. Pages are fetched sequentially; an
// unfetchable or linkless page is logged as a warning and skipped, never
// aborting the run. The one exception is the very first page: if the host
// itself is unreachable there, every later page would fail the same way, so
// the run aborts as a configuration error.
func (o *Orchestrator) DiscoverLinks(ctx context.Context) ([]models.DocumentLink, error) {
	var links []models.DocumentLink

	for year := o.cfg.Years.From; year <= o.cfg.Years.To; year++ {
		if ctx.Err() != nil {
			o.log.Warnf("Run cancelled, stopping listing enumeration at year %d", year)
			break
		}

		listingURL := o.cfg.ListingURL(year)
		pageURL, err := url.Parse(listingURL)
		if err != nil {
			return nil, fmt.Errorf("listing URL for year %d is unusable: %w", year, err)
		}

		yearLog := o.log.WithFields(logrus.Fields{"year": year, "url": listingURL})
		yearLog.Info("Fetching listing page")

		if host := pageURL.Hostname(); host != "" {
			o.limiter.ApplyDelay(host, o.cfg.DelayPerHost)
			o.limiter.UpdateLastRequestTime(host)
		}

		resp, err := o.fetcher.Fetch(ctx, listingURL)
		if err != nil {
			if year == o.cfg.Years.From && hostUnreachable(err) {
				return nil, fmt.Errorf("base host unreachable on first listing page (%s): %w", listingURL, err)
			}
			o.progress.RecordWarning(year, utils.CategorizeError(err),
				fmt.Sprintf("Listing page for year %d could not be fetched: %v", year, err))
			continue
		}

		pageLinks, dropped, err := o.extractor.Extract(resp.Body, extract.PageContext{Year: year, BaseURL: pageURL})
		resp.Body.Close()
		if err != nil {
			o.progress.RecordWarning(year, "Parse_Error",
				fmt.Sprintf("Listing page for year %d could not be parsed: %v", year, err))
			continue
		}
		if dropped > 0 {
			o.progress.RecordWarning(year, "uncategorized_links",
				fmt.Sprintf("Dropped %d document links with no derivable category on year %d listing", dropped, year))
		}
		if len(pageLinks) == 0 {
			o.progress.RecordWarning(year, "no_links",
				fmt.Sprintf("Listing page for year %d yielded no document links", year))
			continue
		}

		yearLog.Infof("Extracted %d document links", len(pageLinks))
		links = append(links, pageLinks...)
	}

	return links, nil
}

// hostUnreachable reports whether a fetch error means the host itself is
// down rather than one page being bad. An HTTP status response proves the
// host is reachable.
func hostUnreachable(err error) bool {
	return errors.Is(err, utils.ErrConnection) || errors.Is(err, utils.ErrTimeout)
}

// checkRobots consults robots.txt for the listing host once before the run
func (o *Orchestrator) checkRobots(ctx context.Context) error {
	listingURL, err := url.Parse(o.cfg.ListingURL(o.cfg.Years.From))
	if err != nil {
		return fmt.Errorf("listing URL is unusable for robots check: %w", err)
	}
	allowed, err := fetch.CheckRobots(ctx, o.client, listingURL, o.cfg.UserAgent, o.log)
	if err != nil {
		o.log.Warnf("robots.txt check inconclusive, proceeding: %v", err)
		return nil
	}
	if !allowed {
		return fmt.Errorf("robots.txt for %s disallows '%s', refusing to run", listingURL.Hostname(), o.cfg.UserAgent)
	}
	return nil
}
