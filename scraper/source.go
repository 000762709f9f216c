package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"repairer-discovery/config"
	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// ErrUnknownOrigin is returned when a session is asked for an origin it has no extractor for.
var ErrUnknownOrigin = errors.New("scraper: unknown origin")

// Extractor knows how to page through and parse one listing origin.
type Extractor interface {
	Origin() models.Source
	// HomeURL is a cheap page used to check the origin is reachable.
	HomeURL() string
	// PageURL returns the search URL for the given 1-based page, or "" when
	// the origin has no such page.
	PageURL(searchTerm, location string, page int) string
	// Actions run after navigation and before the document is captured.
	Actions() []chromedp.Action
	Parse(html string) ([]*models.RawListing, error)
}

// ListingSession is one browser session scoped to a pipeline run.
// Close must be called on every exit path.
type ListingSession interface {
	Fetch(ctx context.Context, origin models.Source, searchTerm, location string, limit int) ([]*models.RawListing, error)
	Close() error
}

// Opener starts listing sessions.
type Opener interface {
	Open(ctx context.Context) (ListingSession, error)
}

// Launcher opens browser-backed listing sessions.
type Launcher struct {
	opts       BrowserOptions
	logger     *utils.Logger
	retry      *utils.RetryConfig
	throttle   *utils.Throttle
	maxPages   int
	extractors map[models.Source]Extractor
}

// NewLauncher creates a Launcher serving the given extractors.
func NewLauncher(cfg *config.Config, logger *utils.Logger, extractors ...Extractor) *Launcher {
	l := &Launcher{
		opts: BrowserOptions{
			ChromeBin:   cfg.ChromeBin,
			UserAgent:   cfg.UserAgent,
			PageTimeout: cfg.PageTimeout(),
		},
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		throttle:   utils.NewThrottle(cfg.RateLimit()),
		maxPages:   cfg.MaxPages,
		extractors: make(map[models.Source]Extractor),
	}
	for _, e := range extractors {
		l.Register(e)
	}
	return l
}

// Register adds or replaces the extractor for its origin.
func (l *Launcher) Register(e Extractor) {
	l.extractors[e.Origin()] = e
}

// Open starts a browser and returns a session owning it.
func (l *Launcher) Open(ctx context.Context) (ListingSession, error) {
	b, err := OpenBrowser(ctx, l.opts, l.logger)
	if err != nil {
		return nil, err
	}
	return &Session{
		browser:    b,
		render:     b.Render,
		logger:     l.logger,
		retry:      l.retry,
		throttle:   l.throttle,
		maxPages:   l.maxPages,
		extractors: l.extractors,
	}, nil
}

// Ping checks that a browser can be launched and can load the home page of
// every registered origin.
func (l *Launcher) Ping(ctx context.Context) error {
	b, err := OpenBrowser(ctx, l.opts, l.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	for _, origin := range []models.Source{models.SourceDirectory, models.SourceMap} {
		e, ok := l.extractors[origin]
		if !ok {
			continue
		}
		if _, err := b.Render(e.HomeURL()); err != nil {
			return fmt.Errorf("scraper: ping %s: %w", origin, err)
		}
	}
	return nil
}

type renderFunc func(url string, actions ...chromedp.Action) (string, error)

// Session fetches listings through one browser tab.
type Session struct {
	browser    *Browser
	render     renderFunc
	logger     *utils.Logger
	retry      *utils.RetryConfig
	throttle   *utils.Throttle
	maxPages   int
	extractors map[models.Source]Extractor
}

// Fetch scrapes up to limit listings (0 means every page) from origin.
// A failure on the first page is an error; a failure on a later page ends
// pagination and keeps what was collected.
func (s *Session) Fetch(ctx context.Context, origin models.Source, searchTerm, location string, limit int) ([]*models.RawListing, error) {
	e, ok := s.extractors[origin]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrigin, origin)
	}

	maxPages := s.maxPages
	if maxPages < 1 {
		maxPages = 1
	}

	var listings []*models.RawListing
	for page := 1; page <= maxPages; page++ {
		url := e.PageURL(searchTerm, location, page)
		if url == "" {
			break
		}
		if err := s.throttle.Wait(ctx); err != nil {
			return listings, err
		}

		s.logger.Info("[%s] Scraping page %d — URL: %s", origin, page, url)

		var pageListings []*models.RawListing
		err := s.retry.Do(ctx, fmt.Sprintf("%s-page-%d", origin, page), func() error {
			html, err := s.render(url, e.Actions()...)
			if err != nil {
				return err
			}
			pageListings, err = e.Parse(html)
			return err
		})
		if err != nil {
			if page == 1 {
				return nil, err
			}
			s.logger.Error("[%s] Page %d failed: %v", origin, page, err)
			break
		}

		if len(pageListings) == 0 {
			s.logger.Warn("[%s] Page %d returned 0 listings — stopping", origin, page)
			break
		}

		now := time.Now()
		for _, l := range pageListings {
			l.Source = origin
			l.ScrapedAt = now
		}
		listings = append(listings, pageListings...)
		s.logger.Info("[%s] Page %d done — collected %d listings so far", origin, page, len(listings))

		if limit > 0 && len(listings) >= limit {
			listings = listings[:limit]
			break
		}
	}
	return listings, nil
}

// Close releases the browser. It is safe to call more than once.
func (s *Session) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}
