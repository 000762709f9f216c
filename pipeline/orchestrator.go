// Package pipeline sequences one discovery run: scrape, clean and dedupe,
// classify, geocode, then merge and filter.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"repairer-discovery/classifier"
	"repairer-discovery/geocoder"
	"repairer-discovery/models"
	"repairer-discovery/scraper"
	"repairer-discovery/services"
	"repairer-discovery/utils"
)

// AcceptThreshold is the confidence a repairer must exceed to leave a run.
const AcceptThreshold = 0.5

// errMissingOutput marks an item a stage returned no result for.
var errMissingOutput = errors.New("stage returned no result for this listing")

// BatchClassifier classifies a batch one item at a time.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, listings []*models.RawListing, useAI bool) ([]classifier.Result, error)
	Fallback(l *models.RawListing, cause error) classifier.Result
	Available() bool
}

// BatchGeocoder geocodes a batch one item at a time.
type BatchGeocoder interface {
	GeocodeBatch(ctx context.Context, listings []*models.RawListing) ([]geocoder.Result, error)
	Fallback(postalCode, city string, cause error) geocoder.Result
}

// Orchestrator runs the discovery pipeline. It is safe to run concurrently:
// every run opens its own listing session and geocoder.
type Orchestrator struct {
	sessions    scraper.Opener
	classifier  BatchClassifier
	newGeocoder func() BatchGeocoder
	cleaner     *services.Cleaner
	logger      *utils.Logger
}

// New creates an Orchestrator. newGeocoder is called once per run so the
// geocode cache never outlives a run.
func New(sessions scraper.Opener, c BatchClassifier, newGeocoder func() BatchGeocoder, logger *utils.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		classifier:  c,
		newGeocoder: newGeocoder,
		cleaner:     services.NewCleaner(logger),
		logger:      logger,
	}
}

// Run executes one pipeline run. Per-item enrichment failures degrade the
// item to fallback data; only source failures, invalid input and
// cancellation abort the run, always as a *RunError.
func (o *Orchestrator) Run(ctx context.Context, cfg models.RunConfig) (result []*models.ProcessedRepairer, err error) {
	if err := models.Validate(&cfg); err != nil {
		return nil, processing("invalid run configuration", err)
	}
	o.logger.Info("[orchestrator] Starting run — source: %s, term: %q, location: %q, max: %d, test mode: %v",
		cfg.Source, cfg.SearchTerm, cfg.Location, cfg.MaxResults, cfg.TestMode)

	raw, err := o.scrape(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cleaned := o.cleaner.Clean(raw)
	o.cleaner.Localize(cleaned, cfg.Location)
	o.cleaner.BackfillPostalCodes(cleaned)
	listings := services.Dedupe(cleaned)
	if len(listings) == 0 {
		return nil, sourceEmpty(fmt.Sprintf("%d listings scraped, none usable", len(raw)))
	}
	o.logger.Info("[orchestrator] %d unique listings after dedupe", len(listings))
	if cfg.MaxResults > 0 && len(listings) > cfg.MaxResults {
		listings = listings[:cfg.MaxResults]
	}
	if err := ctx.Err(); err != nil {
		return nil, processing("cancelled before classification", err)
	}

	useAI := !cfg.TestMode && o.classifier.Available()
	classified, err := o.classifier.ClassifyBatch(ctx, listings, useAI)
	if err != nil {
		return nil, processing("classification interrupted", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, processing("cancelled before geocoding", err)
	}

	geo := o.newGeocoder()
	located, err := geo.GeocodeBatch(ctx, listings)
	if err != nil {
		return nil, processing("geocoding interrupted", err)
	}
	classified = o.fillClassified(listings, classified)
	located = o.fillLocated(geo, listings, located)

	result = merge(listings, classified, located)
	o.logger.Info("[orchestrator] Run complete — %d of %d listings accepted as repairers", len(result), len(listings))
	return result, nil
}

// scrape fetches every requested origin through one session. With several
// origins the run fails only when every origin failed or all came back empty.
func (o *Orchestrator) scrape(ctx context.Context, cfg models.RunConfig) (raw []*models.RawListing, err error) {
	session, err := o.sessions.Open(ctx)
	if err != nil {
		return nil, sourceFailed("could not open listing session", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			o.logger.Warn("[orchestrator] Closing listing session: %v", cerr)
		}
	}()

	var failures []error
	for _, origin := range cfg.Source.Sources() {
		if err := ctx.Err(); err != nil {
			return nil, processing("cancelled during scrape", err)
		}
		listings, err := session.Fetch(ctx, origin, cfg.SearchTerm, cfg.Location, cfg.MaxResults)
		if err != nil {
			o.logger.Error("[orchestrator] Source %s failed: %v", origin, err)
			failures = append(failures, fmt.Errorf("%s: %w", origin, err))
			continue
		}
		o.logger.Info("[orchestrator] Source %s returned %d listings", origin, len(listings))
		raw = append(raw, listings...)
	}

	switch {
	case len(raw) > 0:
		if len(failures) > 0 {
			o.logger.Warn("[orchestrator] Continuing with partial results: %v", errors.Join(failures...))
		}
		return raw, nil
	case len(failures) > 0:
		return nil, sourceFailed("listing source errored", errors.Join(failures...))
	default:
		return nil, sourceEmpty(fmt.Sprintf("no listings for %q in %q", cfg.SearchTerm, cfg.Location))
	}
}

// fillClassified gives every listing a classification. Listings the batch
// skipped get the keyword fallback, so no item is dropped for a missing result.
func (o *Orchestrator) fillClassified(listings []*models.RawListing, results []classifier.Result) []classifier.Result {
	if len(results) > len(listings) {
		o.logger.Warn("[orchestrator] Classifier returned %d results for %d listings, ignoring the extra", len(results), len(listings))
		return results[:len(listings)]
	}
	for i := len(results); i < len(listings); i++ {
		o.logger.Warn("[orchestrator] No classification for %q, using keyword fallback", listings[i].Name)
		results = append(results, o.classifier.Fallback(listings[i], errMissingOutput))
	}
	return results
}

// fillLocated gives every listing a coordinate, using the centroid fallback
// for listings the batch skipped.
func (o *Orchestrator) fillLocated(geo BatchGeocoder, listings []*models.RawListing, results []geocoder.Result) []geocoder.Result {
	if len(results) > len(listings) {
		o.logger.Warn("[orchestrator] Geocoder returned %d results for %d listings, ignoring the extra", len(results), len(listings))
		return results[:len(listings)]
	}
	for i := len(results); i < len(listings); i++ {
		l := listings[i]
		o.logger.Warn("[orchestrator] No coordinates for %q, using department fallback", l.Name)
		results = append(results, geo.Fallback(l.PostalCode, l.City, errMissingOutput))
	}
	return results
}

func merge(listings []*models.RawListing, classified []classifier.Result, located []geocoder.Result) []*models.ProcessedRepairer {
	out := make([]*models.ProcessedRepairer, 0, len(listings))
	for i, l := range listings {
		c, g := classified[i].Classification, located[i].GeocodingResult
		if !c.IsRepairer || c.Confidence <= AcceptThreshold {
			continue
		}
		p := models.NewProcessedRepairer(*l, c, g)
		out = append(out, &p)
	}
	return out
}
