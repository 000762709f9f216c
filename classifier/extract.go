package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"repairer-discovery/models"
)

var (
	errNoJSONObject = errors.New("no JSON object in response")
	errUnbalanced   = errors.New("unbalanced JSON object in response")
)

// ExtractJSONObject returns the first balanced {...} substring of text.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}

// aiVerdict is the JSON shape the model is asked to return.
type aiVerdict struct {
	IsRepairer  *bool    `json:"isRepairer" validate:"required"`
	Confidence  *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
	Services    []string `json:"services"`
	Specialties []string `json:"specialties"`
	PriceRange  string   `json:"priceRange" validate:"oneof=low medium high"`
	Reason      string   `json:"reason"`
}

// parseVerdict extracts and validates the model's verdict.
// QualityScore is left for the caller to fill in.
func parseVerdict(text string) (models.Classification, error) {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return models.Classification{}, err
	}

	var v aiVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return models.Classification{}, fmt.Errorf("failed to unmarshal verdict JSON: %w", err)
	}
	v.PriceRange = normalisePriceRange(v.PriceRange)
	if err := models.Validate(&v); err != nil {
		return models.Classification{}, err
	}

	return models.Classification{
		IsRepairer:  *v.IsRepairer,
		Confidence:  *v.Confidence,
		Services:    uniqueStrings(v.Services),
		Specialties: uniqueStrings(v.Specialties),
		PriceRange:  models.PriceRange(v.PriceRange),
		Reason:      strings.TrimSpace(v.Reason),
		Method:      models.MethodAI,
	}, nil
}

func normalisePriceRange(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "bas", "faible":
		return string(models.PriceLow)
	case "high", "haut", "eleve", "élevé":
		return string(models.PriceHigh)
	default:
		return string(models.PriceMedium)
	}
}

// uniqueStrings trims entries and drops blanks and repeats, keeping order.
func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
