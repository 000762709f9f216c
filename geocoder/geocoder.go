// Package geocoder resolves listing addresses to coordinates. Lookups go to an
// external service; empty results, bad payloads and transport errors fall back
// to a jittered department centroid so a result is always returned.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

var (
	errNoMatch   = errors.New("no geocoding match")
	errBadPlace  = errors.New("geocoding match has non-numeric coordinates")
	errNoAddress = errors.New("empty address")
	preciseTypes = map[string]bool{"house": true, "building": true, "apartments": true}
)

// Result is the outcome of geocoding one address. Degraded is non-nil when
// the fallback centroid was used and carries the cause.
type Result struct {
	models.GeocodingResult
	Degraded error
	Cached   bool
}

// Options configures a Geocoder.
type Options struct {
	Country  string
	CacheTTL time.Duration
	Throttle *utils.Throttle
	Rand     *rand.Rand
}

// Geocoder owns a per-run cache and paces calls to the lookup service.
// It is not safe for concurrent use.
type Geocoder struct {
	lookup   Lookup
	country  string
	cache    *Cache
	throttle *utils.Throttle
	rng      *rand.Rand
	logger   *utils.Logger
}

// New creates a Geocoder. lookup may be nil, in which case every address
// resolves through the fallback table.
func New(lookup Lookup, opts Options, logger *utils.Logger) *Geocoder {
	if opts.Throttle == nil {
		opts.Throttle = utils.NewThrottle(0)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Geocoder{
		lookup:   lookup,
		country:  opts.Country,
		cache:    NewCache(opts.CacheTTL),
		throttle: opts.Throttle,
		rng:      opts.Rand,
		logger:   logger,
	}
}

// CacheStats exposes the hit/miss counters of the run cache.
func (g *Geocoder) CacheStats() CacheStats {
	return g.cache.Stats()
}

// Geocode resolves one address. It never fails: problems are reported through
// Result.Degraded alongside a centroid coordinate tagged "fallback".
func (g *Geocoder) Geocode(ctx context.Context, address, city, postalCode string) Result {
	full := models.JoinAddress(address, city, postalCode)
	key := CacheKey(full)

	if key != "" {
		if cached, ok := g.cache.Get(key); ok {
			return Result{GeocodingResult: cached, Cached: true}
		}
	}

	res, err := g.lookupAddress(ctx, full)
	if err != nil {
		g.logger.Warn("[geocoder] Lookup failed for %q, using department fallback: %v", full, err)
		return Result{GeocodingResult: fallbackResult(postalCode, city, g.rng), Degraded: err}
	}

	g.cache.Set(key, res)
	return Result{GeocodingResult: res}
}

func (g *Geocoder) lookupAddress(ctx context.Context, full string) (res models.GeocodingResult, err error) {
	if full == "" {
		return res, errNoAddress
	}
	if g.lookup == nil {
		return res, errors.New("no geocoding service configured")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("geocoding lookup panicked: %v", r)
		}
	}()

	if err := g.throttle.Wait(ctx); err != nil {
		return res, fmt.Errorf("waiting for rate limit: %w", err)
	}
	places, err := g.lookup.Lookup(context.WithoutCancel(ctx), full, g.country)
	if err != nil {
		return res, err
	}
	if len(places) == 0 {
		return res, errNoMatch
	}
	return placeResult(places[0])
}

// placeResult validates the first match and converts it to a GeocodingResult.
func placeResult(p Place) (models.GeocodingResult, error) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if errLat != nil || errLng != nil || !finite(lat) || !finite(lng) {
		return models.GeocodingResult{}, fmt.Errorf("%w: lat=%q lon=%q", errBadPlace, p.Lat, p.Lon)
	}

	accuracy := models.AccuracyApproximate
	if preciseTypes[p.Type] || preciseTypes[p.AddressType] {
		accuracy = models.AccuracyPrecise
	}

	return models.GeocodingResult{
		Lat:              round6(lat),
		Lng:              round6(lng),
		FormattedAddress: p.DisplayName,
		Accuracy:         accuracy,
	}, nil
}

// GeocodeBatch geocodes listings one at a time. The batch stops between items
// once ctx is done and returns the results gathered so far.
func (g *Geocoder) GeocodeBatch(ctx context.Context, listings []*models.RawListing) ([]Result, error) {
	g.logger.Info("[geocoder] Geocoding %d listings, one lookup every %v", len(listings), g.throttle.Interval())
	results := make([]Result, 0, len(listings))
	for i, l := range listings {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		g.logger.Debug("[geocoder] Geocoding %d/%d: %s", i+1, len(listings), l.FullAddress())
		results = append(results, g.Geocode(ctx, l.Address, l.City, l.PostalCode))
	}
	stats := g.cache.Stats()
	g.logger.Info("[geocoder] Geocoded %d listings (cache hits: %d, misses: %d)", len(results), stats.Hits, stats.Misses)
	return results, nil
}

// Fallback returns the centroid result for a listing without attempting a lookup.
func (g *Geocoder) Fallback(postalCode, city string, cause error) Result {
	return Result{GeocodingResult: fallbackResult(postalCode, city, g.rng), Degraded: cause}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
