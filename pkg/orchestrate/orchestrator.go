package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/crawler"
	"github.com/gowgit/site-crawler/pkg/document"
	"github.com/gowgit/site-crawler/pkg/fetch"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/parse"
	"github.com/gowgit/site-crawler/pkg/storage"
	"github.com/gowgit/site-crawler/pkg/utils"
)

// Orchestrator runs the crawl loop: it pulls uncrawled URLs from storage, crawls each one as a
// site and feeds the external links it finds back into storage for later iterations
type Orchestrator struct {
	appCfg  config.AppConfig
	store   storage.Store
	fetcher fetch.HTTPFetcher
	log     *logrus.Entry

	results []models.SiteResult
}

// NewOrchestrator creates an orchestrator over store. appCfg is expected to be validated.
func NewOrchestrator(appCfg config.AppConfig, store storage.Store, fetcher fetch.HTTPFetcher, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		appCfg:  appCfg,
		store:   store,
		fetcher: fetcher,
		log:     log.WithField("component", "orchestrator"),
	}
}

// Run crawls until the iteration limit is hit, storage outgrows max_data_size or no uncrawled
// URLs remain. Site failures are reported in the results; only storage and context errors
// end the run early.
func (o *Orchestrator) Run(ctx context.Context) ([]models.SiteResult, error) {
	startTime := time.Now()
	o.results = nil
	defer func() { o.logSummary(time.Since(startTime)) }()

	for iteration := 1; o.appCfg.MaxIterations < 0 || iteration <= o.appCfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return o.results, err
		}

		size, err := o.store.Size(ctx)
		if err != nil {
			return o.results, fmt.Errorf("reading storage size: %w", err)
		}
		if size >= o.appCfg.MaxDataSize {
			o.log.Infof("Storage holds %d bytes (limit %d), stopping", size, o.appCfg.MaxDataSize)
			break
		}

		seeds, err := o.store.UncrawledURLs(ctx, o.appCfg.SitesPerIteration)
		if err != nil {
			return o.results, fmt.Errorf("loading uncrawled urls: %w", err)
		}
		if len(seeds) == 0 {
			o.log.Info("No urls to crawl, stopping")
			break
		}

		runID := uuid.NewString()
		iterLog := o.log.WithFields(logrus.Fields{"run_id": runID, "iteration": iteration})
		iterLog.Infof("Starting iteration over %d site(s), storage size %d bytes", len(seeds), size)

		results, err := o.runIteration(ctx, runID, seeds, iterLog)
		o.results = append(o.results, results...)
		if err != nil {
			return o.results, err
		}

		var docs, urls int
		for _, r := range results {
			docs += r.DocsSaved
			urls += r.ExternalNew
		}
		iterLog.Infof("Saved %d document(s) and %d new external url(s) this iteration", docs, urls)
	}

	return o.results, nil
}

// runIteration crawls each seed as a site, at most num_workers at a time
func (o *Orchestrator) runIteration(ctx context.Context, runID string, seeds []models.URLRecord, log *logrus.Entry) ([]models.SiteResult, error) {
	results := make([]models.SiteResult, len(seeds))

	workers := o.appCfg.NumWorkers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			results[i] = o.crawlSite(ctx, runID, seed.URL, log)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// crawlSite crawls one site with its own Crawler and persists what it finds
func (o *Orchestrator) crawlSite(ctx context.Context, runID, siteURL string, log *logrus.Entry) models.SiteResult {
	startTime := time.Now()
	result := models.SiteResult{SiteURL: siteURL, RunID: runID}
	siteLog := log.WithField("site", siteURL)

	c := crawler.NewFromConfig(o.appCfg, o.fetcher, siteLog)
	var opts crawler.SiteOptions
	if key, siteCfg, ok := o.appCfg.SiteFor(siteURL); ok {
		siteLog = siteLog.WithField("site_key", key)
		opts.AllowPaths = siteCfg.AllowPaths
		opts.DisallowPaths = siteCfg.DisallowPaths
	}

	seed := models.NewURL(siteURL)
	var seedRec *models.URLRecord
	externals, err := c.CrawlSite(ctx, seed, opts, func(doc *document.Document) error {
		result.Pages++
		saved, rec, err := o.saveDocument(ctx, c, doc, siteLog)
		if err != nil {
			return err
		}
		if seedRec == nil {
			seedRec = &rec
		}
		if saved {
			result.DocsSaved++
		} else if !doc.IsEmpty() {
			result.Duplicates++
		}
		return nil
	})
	result.FinalURL = seed.Raw
	result.Duration = time.Since(startTime)

	// The seed record is keyed by the URL it was stored under, not where it redirected to
	if err == nil && seedRec != nil && seedRec.URL != siteURL {
		rec := *seedRec
		rec.URL = siteURL
		err = o.store.UpdateURL(ctx, rec)
	}
	// A seed that can never be crawled must not be picked again
	if utils.IsUsageError(err) {
		rec := models.NewURLRecord(seed)
		rec.URL = siteURL
		rec.Crawled = true
		rec.LastAttempt = time.Now().UTC()
		rec.Status = models.PageStatusFailure
		rec.ErrorType = utils.CategorizeError(err)
		if updErr := o.store.UpdateURL(ctx, rec); updErr != nil {
			siteLog.Errorf("Failed to mark seed as crawled: %v", updErr)
		}
	}

	if err != nil {
		result.Error = err
		siteLog.Errorf("Site crawl failed: %v", err)
		return result
	}

	result.External = len(externals)
	if len(externals) > 0 {
		recs := make([]models.URLRecord, 0, len(externals))
		for _, u := range externals {
			recs = append(recs, models.URLRecord{URL: u.Raw})
		}
		added, err := o.store.InsertURLs(ctx, recs)
		if err != nil {
			result.Error = fmt.Errorf("saving external urls: %w", err)
			siteLog.Errorf("Failed to save external urls: %v", err)
			return result
		}
		result.ExternalNew = added
	}

	siteLog.Infof("Crawled and saved %d doc(s) for the site in %v", result.DocsSaved, result.Duration.Round(time.Millisecond))
	return result
}

// saveDocument stores doc and records the crawl outcome of its URL. It reports whether the
// document was newly inserted; an existing document is not an error.
func (o *Orchestrator) saveDocument(ctx context.Context, c *crawler.Crawler, doc *document.Document, log *logrus.Entry) (bool, models.URLRecord, error) {
	pageLog := log.WithField("url", doc.URL.Raw)

	saved := false
	if !doc.IsEmpty() {
		err := o.store.InsertDocument(ctx, doc.ToRecord(true))
		switch {
		case err == nil:
			saved = true
			pageLog.Debug("Saved document")
		case errors.Is(err, utils.ErrAlreadyExists):
			pageLog.Debug("Document already exists")
		default:
			return false, models.URLRecord{}, fmt.Errorf("saving document %s: %w", doc.URL.Raw, err)
		}
	}

	rec := models.NewURLRecord(doc.URL)
	rec.Status = models.StatusFor(doc.URL.Crawled, !doc.IsEmpty())
	if resp := c.LastResponse(); resp != nil && resp.Err != nil {
		rec.ErrorType = utils.CategorizeError(resp.Err)
	}
	if err := o.store.UpdateURL(ctx, rec); err != nil {
		return saved, rec, fmt.Errorf("updating url %s: %w", doc.URL.Raw, err)
	}
	return saved, rec, nil
}

// logSummary logs a summary of all site results of the run
func (o *Orchestrator) logSummary(totalDuration time.Duration) {
	o.log.Info("============================================")
	o.log.Infof("Crawl run completed in %v", totalDuration)
	o.log.Info("Site Results:")

	var totalDocs, totalNew int
	successCount := 0
	failCount := 0

	for _, r := range o.results {
		status := "SUCCESS"
		if r.Error != nil {
			status = "FAILED"
			failCount++
		} else {
			successCount++
		}
		totalDocs += r.DocsSaved
		totalNew += r.ExternalNew

		o.log.Infof("  %s: %s - %d pages, %d saved, %d duplicate in %v", r.SiteURL, status, r.Pages, r.DocsSaved, r.Duplicates, r.Duration)
		if r.Error != nil {
			o.log.Infof("    Error: %v", r.Error)
		}
	}

	o.log.Info("--------------------------------------------")
	o.log.Infof("Total: %d sites (%d success, %d failed), %d docs saved, %d new urls",
		len(o.results), successCount, failCount, totalDocs, totalNew)
	o.log.Info("============================================")
}

// SeedURLs stores each valid URL as an uncrawled record and returns how many were new
func SeedURLs(ctx context.Context, store storage.URLStore, urls []string) (int, error) {
	recs := make([]models.URLRecord, 0, len(urls))
	for _, raw := range urls {
		if !parse.IsValid(raw) {
			return 0, fmt.Errorf("%w: %q", utils.ErrInvalidURL, raw)
		}
		recs = append(recs, models.URLRecord{URL: raw})
	}
	if len(recs) == 0 {
		return 0, utils.ErrNoURLs
	}
	return store.InsertURLs(ctx, recs)
}
