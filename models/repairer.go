package models

// PriceRange is the coarse price tier inferred for a repairer.
type PriceRange string

const (
	PriceLow    PriceRange = "low"
	PriceMedium PriceRange = "medium"
	PriceHigh   PriceRange = "high"
)

// ClassificationMethod records which classifier path produced a Classification.
type ClassificationMethod string

const (
	MethodAI       ClassificationMethod = "ai"
	MethodFallback ClassificationMethod = "fallback"
)

// Classification is the verdict attached to a listing during the classify stage.
type Classification struct {
	IsRepairer   bool                 `json:"isRepairer"`
	Confidence   float64              `json:"confidence"`
	Services     []string             `json:"services"`
	Specialties  []string             `json:"specialties"`
	PriceRange   PriceRange           `json:"priceRange"`
	QualityScore int                  `json:"qualityScore"`
	Reason       string               `json:"reason,omitempty"`
	Method       ClassificationMethod `json:"classificationMethod"`
}

// Accuracy records how a coordinate was obtained.
type Accuracy string

const (
	AccuracyPrecise     Accuracy = "precise"
	AccuracyApproximate Accuracy = "approximate"
	AccuracyFallback    Accuracy = "fallback"
)

// GeocodingResult is the coordinate attached to a listing during the geocode stage.
type GeocodingResult struct {
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	FormattedAddress string   `json:"formattedAddress"`
	Accuracy         Accuracy `json:"accuracy"`
}

// ProcessedRepairer is the immutable output of one pipeline run for one listing.
type ProcessedRepairer struct {
	RawListing
	Classification
	GeocodingResult
	ConfidenceScore float64 `json:"confidenceScore"`
	IsVerified      bool    `json:"isVerified"`
}

// NewProcessedRepairer merges the three stage outputs for one listing.
func NewProcessedRepairer(raw RawListing, c Classification, g GeocodingResult) ProcessedRepairer {
	return ProcessedRepairer{
		RawListing:      raw,
		Classification:  c,
		GeocodingResult: g,
		ConfidenceScore: c.Confidence,
		IsVerified:      false,
	}
}

// Degraded reports whether any enrichment of this record came from a fallback path.
func (p *ProcessedRepairer) Degraded() bool {
	return p.Method == MethodFallback || p.Accuracy == AccuracyFallback
}
