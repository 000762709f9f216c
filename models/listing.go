package models

import (
	"strings"
	"time"
)

// Source identifies the origin a raw listing was scraped from.
type Source string

const (
	SourceDirectory Source = "directory"
	SourceMap       Source = "map"
)

// RawListing holds unprocessed scraped data for a candidate business.
// It is scoped to one pipeline run and is never persisted on its own.
type RawListing struct {
	Name         string    `json:"name" validate:"required"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postalCode" validate:"omitempty,numeric,len=5"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	Website      string    `json:"website,omitempty"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	Rating       float64   `json:"rating,omitempty" validate:"gte=0,lte=5"`
	ReviewCount  int       `json:"reviewCount,omitempty" validate:"gte=0"`
	OpeningHours string    `json:"openingHours,omitempty"`
	Source       Source    `json:"source" validate:"oneof=directory map"`
	ScrapedAt    time.Time `json:"scrapedAt"`
}

// DedupKey is the exact-match key used to collapse the same business seen twice.
func (l *RawListing) DedupKey() string {
	return strings.ToLower(l.Name) + "|" + l.PostalCode
}

// FullAddress joins the address parts in the form expected by geocoders.
func (l *RawListing) FullAddress() string {
	return JoinAddress(l.Address, l.City, l.PostalCode)
}

// JoinAddress builds "street, postal city" skipping empty parts.
func JoinAddress(address, city, postalCode string) string {
	locality := strings.TrimSpace(strings.TrimSpace(postalCode) + " " + strings.TrimSpace(city))
	parts := make([]string, 0, 2)
	if a := strings.TrimSpace(address); a != "" {
		parts = append(parts, a)
	}
	if locality != "" {
		parts = append(parts, locality)
	}
	return strings.Join(parts, ", ")
}
