package services

import (
	"regexp"
	"strings"
	"time"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

var (
	// postalRegexp captures a French 5-digit postal code followed by a city name
	postalRegexp = regexp.MustCompile(`\b(\d{5})\b\s*(.*)$`)
	// postalCodeRegexp finds a postal code anywhere in a search location
	postalCodeRegexp = regexp.MustCompile(`\b\d{5}\b`)
	// nonDigitRegexp strips everything but digits and a leading plus
	nonDigitRegexp = regexp.MustCompile(`[^\d+]`)
)

// Cleaner normalises raw listings at the source boundary and drops records
// whose shape cannot be trusted downstream.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises every listing and returns only the valid ones.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.RawListing {
	result := make([]*models.RawListing, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		l := normaliseListing(*r)
		if err := models.Validate(&l); err != nil {
			c.logger.Warn("[cleaner] Dropping malformed listing %q: %v", r.Name, err)
			continue
		}
		result = append(result, &l)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

func normaliseListing(l models.RawListing) models.RawListing {
	l.Name = utils.NormaliseText(l.Name)
	l.Address = utils.NormaliseText(l.Address)
	l.City = utils.NormaliseText(l.City)
	l.PostalCode = strings.TrimSpace(l.PostalCode)
	l.Description = utils.NormaliseText(l.Description)
	l.Category = utils.NormaliseText(l.Category)
	l.OpeningHours = utils.NormaliseText(l.OpeningHours)
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.Website = strings.TrimSpace(l.Website)
	l.Phone = FormatPhone(strings.TrimSpace(l.Phone))

	// Address lines often carry "75002 Paris" at the end.
	if l.PostalCode == "" || l.City == "" {
		if postal, city, street, ok := splitLocality(l.Address); ok {
			if l.PostalCode == "" {
				l.PostalCode = postal
			}
			if l.City == "" {
				l.City = city
			}
			l.Address = street
		}
	}

	if l.ScrapedAt.IsZero() {
		l.ScrapedAt = time.Now()
	}
	return l
}

// Localize fills City and PostalCode from the run's search location for
// listings whose origin gave no locality at all, such as map cards that only
// show the street. It returns how many listings were filled.
func (c *Cleaner) Localize(listings []*models.RawListing, location string) int {
	postal, city := splitLocation(location)
	if postal == "" && city == "" {
		return 0
	}
	n := 0
	for _, l := range listings {
		if l.City != "" || l.PostalCode != "" {
			continue
		}
		l.City, l.PostalCode = city, postal
		n++
	}
	if n > 0 {
		c.logger.Debug("[cleaner] Filled locality of %d listings from %q", n, location)
	}
	return n
}

// BackfillPostalCodes gives a listing without a postal code the code of the
// listings sharing its name and city, so the same business seen on two
// origins ends up with one dedup key. A name and city seen with several
// different codes is left alone. It returns how many listings were filled.
func (c *Cleaner) BackfillPostalCodes(listings []*models.RawListing) int {
	codes := make(map[string]map[string]bool)
	for _, l := range listings {
		if l.PostalCode == "" || l.City == "" {
			continue
		}
		key := siblingKey(l)
		if codes[key] == nil {
			codes[key] = make(map[string]bool)
		}
		codes[key][l.PostalCode] = true
	}

	n := 0
	for _, l := range listings {
		if l.PostalCode != "" || l.City == "" {
			continue
		}
		candidates := codes[siblingKey(l)]
		if len(candidates) != 1 {
			continue
		}
		for code := range candidates {
			l.PostalCode = code
		}
		n++
	}
	if n > 0 {
		c.logger.Debug("[cleaner] Backfilled the postal code of %d listings", n)
	}
	return n
}

func siblingKey(l *models.RawListing) string {
	return strings.ToLower(l.Name) + "|" + utils.Fold(l.City)
}

// splitLocation reads "75011 Paris", "Paris 75011", "Paris" or "75011".
func splitLocation(location string) (postal, city string) {
	location = utils.NormaliseText(location)
	if loc := postalCodeRegexp.FindStringIndex(location); loc != nil {
		postal = location[loc[0]:loc[1]]
		location = location[:loc[0]] + " " + location[loc[1]:]
	}
	city = strings.Trim(utils.NormaliseText(location), " ,")
	return postal, city
}

// splitLocality splits "12 rue de la Paix, 75002 Paris" into its street,
// postal code and city parts.
func splitLocality(address string) (postal, city, street string, ok bool) {
	loc := postalRegexp.FindStringSubmatchIndex(address)
	if loc == nil {
		return "", "", address, false
	}
	postal = address[loc[2]:loc[3]]
	city = strings.TrimSpace(address[loc[4]:loc[5]])
	street = strings.TrimRight(strings.TrimSpace(address[:loc[0]]), ", ")
	return postal, city, street, true
}

// FormatPhone renders a French 10-digit number as "01 23 45 67 89".
// International +33 numbers are converted to the national form; anything else
// is returned unchanged.
func FormatPhone(phone string) string {
	digits := nonDigitRegexp.ReplaceAllString(phone, "")
	if strings.HasPrefix(digits, "+33") && len(digits) == 12 {
		digits = "0" + digits[3:]
	}
	if len(digits) != 10 || digits[0] != '0' {
		return phone
	}
	var sb strings.Builder
	for i := 0; i < 10; i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(digits[i : i+2])
	}
	return sb.String()
}

// Dedupe removes listings sharing the same lowercase(name)+postalCode key.
// The first occurrence wins and nothing is merged from later duplicates.
func Dedupe(listings []*models.RawListing) []*models.RawListing {
	seen := utils.NewKeySet()
	result := make([]*models.RawListing, 0, len(listings))
	for _, l := range listings {
		if !seen.Add(l.DedupKey()) {
			continue
		}
		result = append(result, l)
	}
	return result
}
