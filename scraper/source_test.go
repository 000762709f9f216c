package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chromedp/chromedp"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// pagedExtractor serves page N as "page-N" and parses it into N listings per page.
type pagedExtractor struct {
	pages int
}

func (p *pagedExtractor) Origin() models.Source { return models.SourceDirectory }
func (p *pagedExtractor) HomeURL() string { return "home" }
func (p *pagedExtractor) Actions() []chromedp.Action { return nil }

func (p *pagedExtractor) PageURL(_, _ string, page int) string {
	if page > p.pages {
		return ""
	}
	return fmt.Sprintf("page-%d", page)
}

func (p *pagedExtractor) Parse(html string) ([]*models.RawListing, error) {
	var out []*models.RawListing
	for i := 0; i < 2; i++ {
		out = append(out, &models.RawListing{Name: fmt.Sprintf("%s-%d", html, i)})
	}
	return out, nil
}

func newTestSession(render renderFunc, maxPages int, e Extractor) *Session {
	return &Session{
		render:     render,
		logger:     utils.Discard(),
		retry:      &utils.RetryConfig{MaxAttempts: 1},
		throttle:   utils.NewThrottle(0),
		maxPages:   maxPages,
		extractors: map[models.Source]Extractor{e.Origin(): e},
	}
}

func echoRender(url string, _ ...chromedp.Action) (string, error) { return url, nil }

func TestFetchPaginates(t *testing.T) {
	s := newTestSession(echoRender, 5, &pagedExtractor{pages: 3})

	listings, err := s.Fetch(context.Background(), models.SourceDirectory, "réparation", "Paris", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 6 {
		t.Fatalf("expected 6 listings from 3 pages, got %d", len(listings))
	}
	for _, l := range listings {
		if l.Source != models.SourceDirectory {
			t.Errorf("listing %q: source %q", l.Name, l.Source)
		}
		if l.ScrapedAt.IsZero() {
			t.Errorf("listing %q: ScrapedAt not set", l.Name)
		}
	}
}

func TestFetchStopsAtLimit(t *testing.T) {
	s := newTestSession(echoRender, 5, &pagedExtractor{pages: 5})

	listings, err := s.Fetch(context.Background(), models.SourceDirectory, "réparation", "Paris", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}
}

func TestFetchFirstPageFailure(t *testing.T) {
	fail := func(string, ...chromedp.Action) (string, error) { return "", errors.New("net::ERR_NAME_NOT_RESOLVED") }
	s := newTestSession(fail, 3, &pagedExtractor{pages: 3})

	if _, err := s.Fetch(context.Background(), models.SourceDirectory, "x", "y", 0); err == nil {
		t.Fatal("expected an error when the first page cannot be loaded")
	}
}

func TestFetchLaterPageFailureKeepsCollected(t *testing.T) {
	render := func(url string, _ ...chromedp.Action) (string, error) {
		if strings.HasSuffix(url, "-2") {
			return "", errors.New("timeout")
		}
		return url, nil
	}
	s := newTestSession(render, 3, &pagedExtractor{pages: 3})

	listings, err := s.Fetch(context.Background(), models.SourceDirectory, "x", "y", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected the 2 listings of page 1, got %d", len(listings))
	}
}

func TestFetchUnknownOrigin(t *testing.T) {
	s := newTestSession(echoRender, 1, &pagedExtractor{pages: 1})

	_, err := s.Fetch(context.Background(), models.SourceMap, "x", "y", 0)
	if !errors.Is(err, ErrUnknownOrigin) {
		t.Fatalf("expected ErrUnknownOrigin, got %v", err)
	}
}

func TestCloseWithoutBrowser(t *testing.T) {
	s := newTestSession(echoRender, 1, &pagedExtractor{pages: 1})
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"4,5", 4.5},
		{"Note 3.8/5", 3.8},
		{"9", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseRating(tt.in); got != tt.want {
			t.Errorf("ParseRating(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"(12 avis)", 12},
		{"(1 234)", 1234},
		{"1 050 avis", 1050},
		{"aucun avis", 0},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("https://a.example/x/", "/site"); got != "https://a.example/site" {
		t.Errorf("got %q", got)
	}
	if got := Resolve("https://a.example", "https://b.example/"); got != "https://b.example/" {
		t.Errorf("got %q", got)
	}
	if got := Resolve("https://a.example", ""); got != "" {
		t.Errorf("got %q", got)
	}
}
