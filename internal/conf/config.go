// config.go: settings struct and functions to load and save the settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for the main application log.
type LogConfig struct {
	Enabled bool   // true to enable file logging
	Path    string // path to log file
}

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of this client instance
	Log  LogConfig // main log settings
}

// LocationSettings contains settings for GPS acquisition and geocoding.
type LocationSettings struct {
	GeocoderURL    string        // base URL of the geocoding service
	CacheTTL       time.Duration // how long geocoding results are cached
	MinQueryLength int           // minimum address query length before a forward geocode is attempted
	FixTimeout     time.Duration // maximum time to wait for a GPS fix
}

// ClassifierSettings contains settings for the on-device category model.
type ClassifierSettings struct {
	ModelPath  string // path to the TensorFlow Lite model file
	LabelPath  string // path to the label file
	InputSize  int    // model input width/height in pixels
	Threads    int    // interpreter threads, 0 for automatic
	UseXNNPACK bool   // true to enable the XNNPACK delegate
}

// SubmissionSettings contains settings for report dispatch.
type SubmissionSettings struct {
	BaseURL           string        // backend base URL
	Endpoint          string        // authenticated submission endpoint path
	AnonymousEndpoint string        // guest submission endpoint path
	Timeout           time.Duration // HTTP client timeout
}

// Settings is the top-level configuration. It is loaded once at startup and
// passed explicitly into the components that need it.
type Settings struct {
	Debug      bool // true to enable debug logging
	Main       MainSettings
	Location   LocationSettings
	Classifier ClassifierSettings
	Submission SubmissionSettings
}

// Load reads configuration from the given file (optional), environment
// variables prefixed with SAATHI_, and built-in defaults, in that order of
// precedence.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("saathi")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "saathi"))
		}
		// A missing config file is fine, defaults apply.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings for values the pipeline cannot work with.
func (s *Settings) Validate() error {
	if s.Location.MinQueryLength < 1 {
		return fmt.Errorf("location.minquerylength must be at least 1, got %d", s.Location.MinQueryLength)
	}
	if s.Classifier.InputSize <= 0 {
		return fmt.Errorf("classifier.inputsize must be positive, got %d", s.Classifier.InputSize)
	}
	if s.Submission.BaseURL == "" {
		return fmt.Errorf("submission.baseurl must be set")
	}
	if !strings.HasPrefix(s.Submission.Endpoint, "/") {
		return fmt.Errorf("submission.endpoint must be an absolute path, got %q", s.Submission.Endpoint)
	}
	if !strings.HasPrefix(s.Submission.AnonymousEndpoint, "/") {
		return fmt.Errorf("submission.anonymousendpoint must be an absolute path, got %q", s.Submission.AnonymousEndpoint)
	}
	return nil
}

// Save writes the current settings to the given path as YAML.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings to %s: %w", path, err)
	}
	return nil
}
