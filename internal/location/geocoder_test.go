package location

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/geo"
)

func testSettings() conf.LocationSettings {
	return conf.LocationSettings{
		GeocoderURL:    "https://geocode.test",
		CacheTTL:       time.Minute,
		MinQueryLength: 5,
		FixTimeout:     15 * time.Second,
	}
}

func newTestGeocoder(t *testing.T) *Geocoder {
	t.Helper()
	g := NewGeocoder(testSettings())
	httpmock.ActivateNonDefault(g.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	t.Cleanup(g.Close)
	return g
}

func TestReverseGeocode(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/reverse`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"display_name": "MG Road, Bengaluru, 560001",
			"address": {"road": "MG Road", "city": "Bengaluru", "postcode": "560001"}
		}`))

	address, err := g.ReverseGeocode(context.Background(), geo.NewPoint(12.9716, 77.5946))
	require.NoError(t, err)
	assert.Equal(t, "MG Road, Bengaluru, 560001", address)
}

func TestReverseGeocodePartialAddress(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/reverse`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"address": {"town": "Alibag", "postcode": "402201"}
		}`))

	address, err := g.ReverseGeocode(context.Background(), geo.NewPoint(18.64, 72.87))
	require.NoError(t, err)
	assert.Equal(t, "Alibag, 402201", address)
}

func TestReverseGeocodePlaceholderWhenEmpty(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/reverse`,
		httpmock.NewStringResponder(http.StatusOK, `{"address": {}}`))

	address, err := g.ReverseGeocode(context.Background(), geo.NewPoint(0.5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, PlaceholderAddress, address)
}

func TestReverseGeocodeCaches(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/reverse`,
		httpmock.NewStringResponder(http.StatusOK, `{
			"address": {"road": "Station Road", "city": "Pune"}
		}`))

	point := geo.NewPoint(18.5204, 73.8567)
	for i := 0; i < 3; i++ {
		address, err := g.ReverseGeocode(context.Background(), point)
		require.NoError(t, err)
		assert.Equal(t, "Station Road, Pune", address)
	}
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReverseGeocodeServerError(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/reverse`,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "unavailable"))

	_, err := g.ReverseGeocode(context.Background(), geo.NewPoint(1, 1))
	assert.Error(t, err)
}

func TestForwardGeocode(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/search`,
		httpmock.NewStringResponder(http.StatusOK, `[{"lat": "12.9716", "lon": "77.5946"}]`))

	point, found, err := g.ForwardGeocode(context.Background(), "MG Road Bengaluru")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 12.9716, point.Latitude, 1e-9)
	assert.InDelta(t, 77.5946, point.Longitude, 1e-9)
}

func TestForwardGeocodeShortQueryIsNoop(t *testing.T) {
	g := newTestGeocoder(t)

	// No responder registered: any request would fail the test.
	for _, query := range []string{"", "MG R", "  MG R  "} {
		point, found, err := g.ForwardGeocode(context.Background(), query)
		require.NoError(t, err)
		assert.False(t, found)
		assert.True(t, point.IsZero())
	}
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestForwardGeocodeFiveCharQueryFires(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/search`,
		httpmock.NewStringResponder(http.StatusOK, `[{"lat": "19.07", "lon": "72.87"}]`))

	_, found, err := g.ForwardGeocode(context.Background(), "Worli")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestForwardGeocodeNotFound(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/search`,
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	point, found, err := g.ForwardGeocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, point.IsZero())
}

func TestForwardGeocodeMalformedCoordinates(t *testing.T) {
	g := newTestGeocoder(t)

	httpmock.RegisterResponder("GET", `=~^https://geocode\.test/search`,
		httpmock.NewStringResponder(http.StatusOK, `[{"lat": "abc", "lon": "def"}]`))

	_, _, err := g.ForwardGeocode(context.Background(), "broken place")
	assert.Error(t, err)
}
