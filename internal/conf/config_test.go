package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Saathi", settings.Main.Name)
	assert.Equal(t, "https://nominatim.openstreetmap.org", settings.Location.GeocoderURL)
	assert.Equal(t, 5, settings.Location.MinQueryLength)
	assert.Equal(t, 224, settings.Classifier.InputSize)
	assert.Equal(t, "/api/reports", settings.Submission.Endpoint)
	assert.Equal(t, "/api/reports/anonymous", settings.Submission.AnonymousEndpoint)
	assert.Equal(t, 45*time.Second, settings.Submission.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
debug: true
location:
  minquerylength: 3
submission:
  baseurl: http://localhost:5000
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.True(t, settings.Debug)
	assert.Equal(t, 3, settings.Location.MinQueryLength)
	assert.Equal(t, "http://localhost:5000", settings.Submission.BaseURL)
	// Untouched keys keep their defaults.
	assert.Equal(t, "/api/reports", settings.Submission.Endpoint)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"defaults are valid", func(s *Settings) {}, true},
		{"zero input size", func(s *Settings) { s.Classifier.InputSize = 0 }, false},
		{"empty base url", func(s *Settings) { s.Submission.BaseURL = "" }, false},
		{"relative endpoint", func(s *Settings) { s.Submission.Endpoint = "api/reports" }, false},
		{"zero min query length", func(s *Settings) { s.Location.MinQueryLength = 0 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings, err := Load("")
			require.NoError(t, err)
			tc.mutate(settings)
			err = settings.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)
	settings.Debug = true

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, settings.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug: true")
}
