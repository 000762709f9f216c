package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"repairer-discovery/utils"
)

var (
	ratingRegexp = regexp.MustCompile(`(\d(?:[.,]\d+)?)`)
	countRegexp  = regexp.MustCompile(`(\d[\d\s.\x{202f}\x{a0}]*)`)
)

// Text returns the whitespace-normalised text of the first node matching selector.
func Text(s *goquery.Selection, selector string) string {
	return utils.NormaliseText(s.Find(selector).First().Text())
}

// Attr returns the trimmed attribute value of the first node matching selector.
func Attr(s *goquery.Selection, selector, attr string) string {
	v, _ := s.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v)
}

// ParseRating reads the first decimal number in text, accepting a comma as
// decimal separator. Values outside 0-5 yield 0.
func ParseRating(text string) float64 {
	m := ratingRegexp.FindString(text)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil || f < 0 || f > 5 {
		return 0
	}
	return f
}

// ParseCount reads the first integer in text, ignoring thousands separators.
func ParseCount(text string) int {
	m := countRegexp.FindString(text)
	if m == "" {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// Resolve makes href absolute against base. Unparseable input is returned as is.
func Resolve(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
