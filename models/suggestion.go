package models

import "time"

// SuggestionStatus is the review state of a suggestion.
// Transitions are pending->approved and pending->rejected only.
type SuggestionStatus string

const (
	StatusPending  SuggestionStatus = "pending"
	StatusApproved SuggestionStatus = "approved"
	StatusRejected SuggestionStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Suggestion is a pipeline-produced candidate awaiting human review.
// Suggestions are never deleted.
type Suggestion struct {
	ID              string            `json:"id"`
	ScrapedData     ProcessedRepairer `json:"scrapedData"`
	ConfidenceScore float64           `json:"confidenceScore"`
	QualityScore    int               `json:"qualityScore"`
	Status          SuggestionStatus  `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	ReviewedAt      *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy      string            `json:"reviewedBy,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
}

// Decided reports whether the suggestion has reached a terminal status.
func (s *Suggestion) Decided() bool {
	return s.Status == StatusApproved || s.Status == StatusRejected
}

// RegistryRecord is the shape inserted into the business registry on approval.
type RegistryRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postalCode"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Website      string    `json:"website,omitempty"`
	Description  string    `json:"description,omitempty"`
	Rating       float64   `json:"rating"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Services     []string  `json:"services"`
	Specialties  []string  `json:"specialties"`
	QualityScore int       `json:"qualityScore"`
	IsVerified   bool      `json:"isVerified"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegistryRecordFrom copies a reviewed snapshot into the registry shape.
// Registry records always start unverified.
func RegistryRecordFrom(p ProcessedRepairer) RegistryRecord {
	return RegistryRecord{
		Name:         p.Name,
		Address:      p.Address,
		City:         p.City,
		PostalCode:   p.PostalCode,
		Phone:        p.Phone,
		Email:        p.Email,
		Website:      p.Website,
		Description:  p.Description,
		Rating:       p.Rating,
		Lat:          p.Lat,
		Lng:          p.Lng,
		Services:     append([]string(nil), p.Services...),
		Specialties:  append([]string(nil), p.Specialties...),
		QualityScore: p.QualityScore,
		IsVerified:   false,
		Source:       "scraping_" + string(p.Source),
	}
}

// InsightReport summarises one processed batch.
type InsightReport struct {
	TotalRepairers    int
	DegradedRecords   int
	BySource          map[Source]int
	ByMethod          map[ClassificationMethod]int
	ByAccuracy        map[Accuracy]int
	ByCity            map[string]int
	AverageConfidence float64
	AverageQuality    float64
	TopQuality        []*ProcessedRepairer
}
