package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Place is one match returned by a geocoding lookup.
type Place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	AddressType string `json:"addresstype"`
}

// Lookup resolves a free-form address to candidate places, restricted to a country.
type Lookup interface {
	Lookup(ctx context.Context, fullAddress, country string) ([]Place, error)
}

// NominatimClient queries an OpenStreetMap Nominatim search endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a client for the given Nominatim base URL.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &NominatimClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup returns at most one match for fullAddress.
func (c *NominatimClient) Lookup(ctx context.Context, fullAddress, country string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", fullAddress)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "0")
	if country != "" {
		params.Set("countrycodes", country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "fr")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return places, nil
}
