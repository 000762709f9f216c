package geocoder

import (
	"math/rand"

	"repairer-discovery/models"
)

type centroid struct {
	lat, lng float64
	label    string
}

// franceCentroid is used when the department is unknown.
var franceCentroid = centroid{46.603354, 1.888334, "France"}

// departmentCentroids covers the most populous metropolitan departments.
var departmentCentroids = map[string]centroid{
	"75": {48.8566, 2.3522, "Paris"},
	"13": {43.2965, 5.3698, "Marseille, Bouches-du-Rhône"},
	"69": {45.7640, 4.8357, "Lyon, Rhône"},
	"59": {50.6292, 3.0573, "Lille, Nord"},
	"33": {44.8378, -0.5792, "Bordeaux, Gironde"},
	"31": {43.6047, 1.4442, "Toulouse, Haute-Garonne"},
	"06": {43.7102, 7.2620, "Nice, Alpes-Maritimes"},
	"44": {47.2184, -1.5536, "Nantes, Loire-Atlantique"},
	"67": {48.5734, 7.7521, "Strasbourg, Bas-Rhin"},
	"34": {43.6108, 3.8767, "Montpellier, Hérault"},
	"92": {48.8924, 2.2360, "Nanterre, Hauts-de-Seine"},
	"93": {48.9137, 2.4846, "Bobigny, Seine-Saint-Denis"},
	"94": {48.7904, 2.4556, "Créteil, Val-de-Marne"},
	"35": {48.1173, -1.6778, "Rennes, Ille-et-Vilaine"},
	"38": {45.1885, 5.7245, "Grenoble, Isère"},
	"62": {50.2910, 2.7775, "Arras, Pas-de-Calais"},
}

// jitterDegrees bounds the random offset applied to fallback coordinates so
// repeated fallbacks in one department do not stack on a single point.
const jitterDegrees = 0.0045

// fallbackResult returns the department centroid for postalCode, jittered.
func fallbackResult(postalCode, city string, rng *rand.Rand) models.GeocodingResult {
	c := franceCentroid
	if len(postalCode) >= 2 {
		if dc, ok := departmentCentroids[postalCode[:2]]; ok {
			c = dc
		}
	}

	formatted := c.label
	if city != "" {
		formatted = models.JoinAddress("", city, postalCode) + ", France"
	}

	return models.GeocodingResult{
		Lat:              round6(c.lat + jitter(rng)),
		Lng:              round6(c.lng + jitter(rng)),
		FormattedAddress: formatted,
		Accuracy:         models.AccuracyFallback,
	}
}

func jitter(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * jitterDegrees
}
