package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
)

// PlaceholderAddress is returned when reverse geocoding succeeds but the
// service has no structured address for the coordinate.
const PlaceholderAddress = "Selected Location"

// CurrentLocationAddress is the placeholder shown for the device's own
// position when no address could be resolved for it.
const CurrentLocationAddress = "Current Location"

// reverseResponse is the subset of a Nominatim jsonv2 reverse result the
// pipeline consumes.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road     string `json:"road"`
		Suburb   string `json:"suburb"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

// searchResult is a single Nominatim jsonv2 search hit. Coordinates come
// back as strings.
type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocoder resolves coordinates to addresses and address text to
// coordinates via a Nominatim-style HTTP service. Responses are cached.
type Geocoder struct {
	settings   conf.LocationSettings
	httpClient *http.Client
	cache      *cache.Cache
}

// NewGeocoder creates a geocoder client from location settings.
func NewGeocoder(settings conf.LocationSettings) *Geocoder {
	g := &Geocoder{
		settings:   settings,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.New(settings.CacheTTL, settings.CacheTTL*2),
	}
	logger.Info("Geocoder initialized",
		"base_url", settings.GeocoderURL,
		"cache_ttl", settings.CacheTTL,
		"min_query_length", settings.MinQueryLength)
	return g
}

// ReverseGeocode resolves a coordinate to a best-effort human-readable
// address. When the service returns no structured address the placeholder
// string is used, success with an empty street is not an error.
func (g *Geocoder) ReverseGeocode(ctx context.Context, point geo.Point) (string, error) {
	cacheKey := fmt.Sprintf("reverse:%.5f:%.5f", point.Latitude, point.Longitude)
	if cached, found := g.cache.Get(cacheKey); found {
		if address, ok := cached.(string); ok {
			logger.Debug("Reverse geocode cache hit", "cache_key", cacheKey)
			return address, nil
		}
	}

	reqURL := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%s&lon=%s",
		g.settings.GeocoderURL,
		url.QueryEscape(strconv.FormatFloat(point.Latitude, 'f', -1, 64)),
		url.QueryEscape(strconv.FormatFloat(point.Longitude, 'f', -1, 64)))

	var resp reverseResponse
	if err := g.doRequest(ctx, reqURL, &resp); err != nil {
		return "", err
	}

	address := assembleAddress(&resp)
	g.cache.Set(cacheKey, address, cache.DefaultExpiration)
	logger.Debug("Reverse geocode resolved", "lat", point.Latitude, "lon", point.Longitude, "address", address)
	return address, nil
}

// ForwardGeocode resolves free-form address text to a coordinate. Queries
// shorter than the configured minimum length are a no-op, not an error.
// The second return value reports whether a location was found.
func (g *Geocoder) ForwardGeocode(ctx context.Context, query string) (geo.Point, bool, error) {
	query = strings.TrimSpace(query)
	if len(query) < g.settings.MinQueryLength {
		logger.Debug("Forward geocode skipped, query too short", "query_length", len(query))
		return geo.Point{}, false, nil
	}

	cacheKey := "search:" + strings.ToLower(query)
	if cached, found := g.cache.Get(cacheKey); found {
		if point, ok := cached.(geo.Point); ok {
			logger.Debug("Forward geocode cache hit", "cache_key", cacheKey)
			return point, true, nil
		}
	}

	reqURL := fmt.Sprintf("%s/search?format=jsonv2&limit=1&q=%s",
		g.settings.GeocoderURL, url.QueryEscape(query))

	var results []searchResult
	if err := g.doRequest(ctx, reqURL, &results); err != nil {
		return geo.Point{}, false, err
	}
	if len(results) == 0 {
		logger.Debug("Forward geocode found no results", "query", query)
		return geo.Point{}, false, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return geo.Point{}, false, errors.Newf("geocoder returned malformed coordinates: lat=%q lon=%q", results[0].Lat, results[0].Lon).
			Component("location").
			Category(errors.CategoryGeocoding).
			Context("query_length", len(query)).
			Build()
	}

	point := geo.NewPoint(lat, lon)
	g.cache.Set(cacheKey, point, cache.DefaultExpiration)
	logger.Debug("Forward geocode resolved", "query", query, "lat", lat, "lon", lon)
	return point, true, nil
}

// doRequest performs a GET against the geocoding service and decodes the
// JSON response into result.
func (g *Geocoder) doRequest(ctx context.Context, reqURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return errors.Newf("failed to create geocode request: %w", err).
			Component("location").
			Category(errors.CategoryGeocoding).
			Build()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Saathi-Go")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.Error("Geocode request failed", "url", reqURL, "error", err)
		return errors.Newf("geocode request failed: %w", err).
			Component("location").
			Category(errors.CategoryGeocoding).
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Newf("failed to read geocode response: %w", err).
			Component("location").
			Category(errors.CategoryGeocoding).
			Context("status_code", resp.StatusCode).
			Build()
	}

	if resp.StatusCode >= 400 {
		logger.Warn("Geocode service returned error status", "url", reqURL, "status_code", resp.StatusCode)
		return errors.Newf("geocode service error (status %d)", resp.StatusCode).
			Component("location").
			Category(errors.CategoryGeocoding).
			Context("status_code", resp.StatusCode).
			Build()
	}

	if err := json.Unmarshal(body, result); err != nil {
		return errors.Newf("failed to parse geocode response: %w", err).
			Component("location").
			Category(errors.CategoryGeocoding).
			Context("response_size", len(body)).
			Build()
	}
	return nil
}

// assembleAddress joins street, city and postcode into the display form the
// client shows, falling back to the placeholder when nothing structured
// came back.
func assembleAddress(resp *reverseResponse) string {
	city := resp.Address.City
	if city == "" {
		city = resp.Address.Town
	}
	if city == "" {
		city = resp.Address.Village
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{resp.Address.Road, city, resp.Address.Postcode} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return PlaceholderAddress
	}
	return strings.Join(parts, ", ")
}

// ClearCache drops all cached geocoding results.
func (g *Geocoder) ClearCache() {
	g.cache.Flush()
	logger.Info("Geocoder cache cleared")
}

// Close releases geocoder resources.
func (g *Geocoder) Close() {
	if g.httpClient != nil {
		g.httpClient.CloseIdleConnections()
	}
}
