package classifier

import (
	"math"
	"strings"
	"unicode"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// fallbackMinMatches is the keyword count from which a listing counts as a repairer.
const fallbackMinMatches = 2

const (
	fallbackMaxConf      = 0.9
	fallbackBaseConf     = 0.3
	fallbackPerMatch     = 0.15
	fallbackNegativeConf = 0.3
)

// wholeWordBelow is the keyword length under which a keyword must match a
// whole word. Longer keywords match the start of a word.
const wholeWordBelow = 5

// repairVocabulary is matched against the folded name and description.
var repairVocabulary = []string{
	"reparation", "reparateur", "repare", "repair", "fix",
	"telephone", "smartphone", "mobile", "portable", "gsm", "tablette",
	"ecran", "vitre", "batterie", "connecteur", "desoxydation", "microsoudure",
	"iphone", "ipad", "apple", "samsung", "huawei", "xiaomi", "oppo", "google pixel", "oneplus",
}

// brandSpecialties maps folded brand keywords to their display name.
var brandSpecialties = []struct {
	keyword string
	name    string
}{
	{"iphone", "Apple"}, {"ipad", "Apple"}, {"apple", "Apple"},
	{"samsung", "Samsung"}, {"huawei", "Huawei"}, {"xiaomi", "Xiaomi"},
	{"oppo", "Oppo"}, {"google pixel", "Google"}, {"oneplus", "OnePlus"},
}

// serviceKeywords maps folded keywords to the service they imply.
var serviceKeywords = []struct {
	keyword string
	service string
}{
	{"ecran", "Remplacement écran"},
	{"vitre", "Remplacement écran"},
	{"batterie", "Remplacement batterie"},
	{"connecteur", "Réparation connecteur de charge"},
	{"desoxydation", "Désoxydation"},
	{"microsoudure", "Micro-soudure"},
	{"tablette", "Réparation tablette"},
	{"ipad", "Réparation tablette"},
}

// wordText folds text down to its words, space separated and space padded.
func wordText(text string) string {
	words := strings.FieldsFunc(utils.Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

// hasKeyword reports whether kw occurs in words, as returned by wordText.
// "fix" matches "fix" but not "prefixe" or "fixie"; "mobile" matches
// "mobiles" but not "automobile".
func hasKeyword(words, kw string) bool {
	if len(kw) < wholeWordBelow {
		return strings.Contains(words, " "+kw+" ")
	}
	return strings.Contains(words, " "+kw)
}

// matchKeywords counts the distinct vocabulary entries found in text.
func matchKeywords(text string) int {
	words := wordText(text)
	n := 0
	for _, kw := range repairVocabulary {
		if hasKeyword(words, kw) {
			n++
		}
	}
	return n
}

// fallbackClassify is the deterministic keyword classifier. QualityScore is
// left for the caller to fill in.
func fallbackClassify(name, description, reason string) models.Classification {
	text := name + " " + description
	matches := matchKeywords(text)
	words := wordText(text)

	c := models.Classification{
		Services:    []string{},
		Specialties: []string{},
		PriceRange:  models.PriceMedium,
		Method:      models.MethodFallback,
		Reason:      reason,
	}

	if matches < fallbackMinMatches {
		c.IsRepairer = false
		c.Confidence = fallbackNegativeConf
		return c
	}

	c.IsRepairer = true
	c.Confidence = math.Min(fallbackMaxConf, float64(matches)*fallbackPerMatch+fallbackBaseConf)

	services := []string{"Réparation smartphone"}
	for _, sk := range serviceKeywords {
		if hasKeyword(words, sk.keyword) {
			services = append(services, sk.service)
		}
	}
	var specialties []string
	for _, b := range brandSpecialties {
		if hasKeyword(words, b.keyword) {
			specialties = append(specialties, b.name)
		}
	}
	c.Services = uniqueStrings(services)
	c.Specialties = uniqueStrings(specialties)
	return c
}
