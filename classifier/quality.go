package classifier

import (
	"math"
	"strings"

	"repairer-discovery/models"
)

// QualityScore combines data completeness (max 40), quality signals (max 30)
// and classifier confidence (max 30) into a 0-100 score.
func QualityScore(l *models.RawListing, confidence float64) int {
	score := 0.0

	if present(l.Name) {
		score += 10
	}
	if present(l.Address) {
		score += 10
	}
	if present(l.Phone) {
		score += 8
	}
	if present(l.Website) {
		score += 7
	}
	if present(l.Description) {
		score += 5
	}

	if l.Rating > 4 {
		score += 15
	}
	if l.ReviewCount > 10 {
		score += 10
	}
	if present(l.OpeningHours) {
		score += 5
	}

	score += clamp(confidence, 0, 1) * 30

	return int(math.Round(clamp(score, 0, 100)))
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
