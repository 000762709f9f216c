// Package maps extracts repair business listings from a map search results feed.
package maps

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"repairer-discovery/models"
	"repairer-discovery/scraper"
)

const (
	feedSelector = `div[role="feed"]`
	cardSelector = `div[role="feed"] div[role="article"]`
	scrollRounds = 5
	scrollPause  = 1500 * time.Millisecond
)

// separator used between the facts of one card line
const separator = "·"

// Extractor reads the single scrolled results feed of a map search.
type Extractor struct {
	baseURL string
}

// New creates an Extractor for the map site hosted at baseURL.
func New(baseURL string) *Extractor {
	return &Extractor{baseURL: strings.TrimRight(baseURL, "/")}
}

func (e *Extractor) Origin() models.Source { return models.SourceMap }

func (e *Extractor) HomeURL() string { return e.baseURL }

// PageURL returns the search URL. The feed is a single page loaded by scrolling.
func (e *Extractor) PageURL(searchTerm, location string, page int) string {
	if page != 1 {
		return ""
	}
	query := strings.TrimSpace(searchTerm + " " + location)
	return e.baseURL + "/search/" + url.PathEscape(query) + "?hl=fr"
}

// Actions accept the consent dialog and scroll the results feed so more cards load.
func (e *Extractor) Actions() []chromedp.Action {
	actions := []chromedp.Action{
		chromedp.Evaluate(`(function(){
			var b=[].slice.call(document.querySelectorAll('button')).find(function(x){
				return /tout accepter|accept all/i.test(x.innerText)});
			if(b){b.click();return true}return false})()`, nil),
		chromedp.WaitVisible(feedSelector, chromedp.ByQuery),
	}
	for i := 0; i < scrollRounds; i++ {
		actions = append(actions,
			chromedp.Evaluate(fmt.Sprintf(
				`(function(){var f=document.querySelector(%q);if(f){f.scrollTop=f.scrollHeight}})()`,
				feedSelector), nil),
			chromedp.Sleep(scrollPause),
		)
	}
	return actions
}

// Parse extracts every card of the results feed.
func (e *Extractor) Parse(html string) ([]*models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("maps: parse html: %w", err)
	}

	var listings []*models.RawListing
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.AttrOr("aria-label", ""))
		if name == "" {
			name = scraper.Text(card, ".fontHeadlineSmall")
		}
		if name == "" {
			return
		}

		l := &models.RawListing{
			Name:        name,
			Rating:      scraper.ParseRating(scraper.Text(card, "span.MW4etd")),
			ReviewCount: scraper.ParseCount(scraper.Text(card, "span.UY7F9")),
			Phone:       scraper.Text(card, "span.UsdlK"),
			Website:     scraper.Attr(card, `a[data-value="Website"], a[data-value="Site Web"]`, "href"),
			Source:      models.SourceMap,
		}
		card.Find(".W4Efsd .W4Efsd").Each(func(_ int, line *goquery.Selection) {
			facts := splitFacts(line.Text())
			switch {
			case len(facts) == 0:
			case isHoursLine(facts[0]):
				l.OpeningHours = strings.Join(withoutPhone(facts, l.Phone), " "+separator+" ")
			case l.Category == "":
				l.Category = facts[0]
				if len(facts) > 1 {
					l.Address = facts[len(facts)-1]
				}
			}
		})
		l.Description = scraper.Text(card, ".W4Efsd span.ah5Ghc")

		listings = append(listings, l)
	})

	return listings, nil
}

func splitFacts(text string) []string {
	var facts []string
	for _, part := range strings.Split(text, separator) {
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			facts = append(facts, part)
		}
	}
	return facts
}

func withoutPhone(facts []string, phone string) []string {
	out := facts[:0:0]
	for _, f := range facts {
		if phone == "" || f != phone {
			out = append(out, f)
		}
	}
	return out
}

func isHoursLine(fact string) bool {
	lower := strings.ToLower(fact)
	for _, p := range []string{"ouvert", "fermé", "ferme", "open", "closed"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
