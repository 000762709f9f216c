// Package directory extracts repair business listings from a business
// directory's search result pages.
package directory

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"repairer-discovery/models"
	"repairer-discovery/scraper"
)

const (
	cardSelector    = "li.bi, article.bi"
	consentSelector = "#didomi-notice-agree-button"
)

// Extractor pages through directory search results.
type Extractor struct {
	baseURL string
}

// New creates an Extractor for the directory hosted at baseURL.
func New(baseURL string) *Extractor {
	return &Extractor{baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *Extractor) Origin() models.Source { return models.SourceDirectory }

func (e *Extractor) HomeURL() string { return e.baseURL + "/" }

// PageURL builds the search URL for searchTerm around location.
func (e *Extractor) PageURL(searchTerm, location string, page int) string {
	if page < 1 {
		return ""
	}
	q := url.Values{}
	q.Set("quoiqui", searchTerm)
	q.Set("ou", location)
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return e.baseURL + "/annuaire/chercherlespros?" + q.Encode()
}

// Actions dismiss the cookie banner when present. The click is best effort.
func (e *Extractor) Actions() []chromedp.Action {
	return []chromedp.Action{
		chromedp.Evaluate(fmt.Sprintf(
			`(function(){var b=document.querySelector(%q);if(b){b.click();return true}return false})()`,
			consentSelector), nil),
	}
}

// Parse extracts every result card from a rendered directory page.
func (e *Extractor) Parse(html string) ([]*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("directory: parse html: %w", err)
	}

	var listings []*models.RawListing
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		name := scraper.Text(card, ".bi-denomination h3")
		if name == "" {
			name = scraper.Text(card, ".bi-denomination")
		}
		if name == "" {
			return
		}

		l := &models.RawListing{
			Name:         name,
			Address:      strings.TrimSuffix(scraper.Text(card, ".bi-address"), " Voir le plan"),
			Phone:        strings.TrimPrefix(scraper.Text(card, ".number-contact"), "Tél : "),
			Description:  scraper.Text(card, ".bi-description"),
			Category:     scraper.Text(card, ".bi-activity-unit"),
			Rating:       scraper.ParseRating(scraper.Text(card, ".bi-note h4")),
			ReviewCount:  scraper.ParseCount(scraper.Text(card, ".bi-rating")),
			OpeningHours: scraper.Text(card, ".bi-hours"),
			Website:      scraper.Resolve(e.baseURL, scraper.Attr(card, "a.bi-website", "href")),
			Source:       models.SourceDirectory,
		}
		if mail := scraper.Attr(card, `a[href^="mailto:"]`, "href"); mail != "" {
			l.Email = strings.TrimPrefix(mail, "mailto:")
		}
		listings = append(listings, l)
	})

	return listings, nil
}
