// Package location wraps device GPS acquisition and geocoding for the
// report pipeline. The position provider is an interface so that platform
// bindings and tests can supply their own implementation; the geocoder is
// an HTTP client with response caching.
package location

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/logging"
)

// Package-level logger specific to the location service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "location.log")
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "location", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize location file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.NopLogger("location")
		closeLogger = func() error { return nil }
	}
}

// Accuracy selects the precision requested from the position provider.
// High accuracy may take longer and use more power.
type Accuracy int

const (
	AccuracyBalanced Accuracy = iota
	AccuracyHigh
)

func (a Accuracy) String() string {
	if a == AccuracyHigh {
		return "high"
	}
	return "balanced"
}

// PositionProvider abstracts device GPS acquisition. Implementations must
// honor ctx cancellation and return a permission-denied error when
// foreground location access has not been granted.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, accuracy Accuracy) (geo.Point, error)
}

// PermissionDenied builds the error returned when foreground location
// permission is not granted.
func PermissionDenied() error {
	return errors.Newf("location permission not granted").
		Component("location").
		Category(errors.CategoryPermission).
		Build()
}

// Unavailable builds the error returned when the device cannot produce a
// fix (timeout, hardware error, GPS off).
func Unavailable(cause error) error {
	return errors.New(cause).
		Component("location").
		Category(errors.CategoryLocation).
		Build()
}

// Service composes GPS acquisition with geocoding.
type Service struct {
	provider PositionProvider
	geocoder *Geocoder
}

// NewService creates a location service from a position provider and a
// geocoder.
func NewService(provider PositionProvider, geocoder *Geocoder) *Service {
	return &Service{provider: provider, geocoder: geocoder}
}

// Geocoder returns the underlying geocoder.
func (s *Service) Geocoder() *Geocoder {
	return s.geocoder
}

// CurrentLocation returns the device's current position.
func (s *Service) CurrentLocation(ctx context.Context, accuracy Accuracy) (geo.Point, error) {
	point, err := s.provider.CurrentPosition(ctx, accuracy)
	if err != nil {
		logger.Warn("Position fix failed", "accuracy", accuracy.String(), "error", err)
		return geo.Point{}, err
	}
	logger.Debug("Position fix acquired", "lat", point.Latitude, "lon", point.Longitude, "accuracy", accuracy.String())
	return point, nil
}

// CurrentLocationWithAddress acquires a high-accuracy fix and resolves it
// to a human-readable address. A geocode failure is not fatal, the fix is
// returned with a placeholder address instead.
func (s *Service) CurrentLocationWithAddress(ctx context.Context) (geo.Point, string, error) {
	point, err := s.CurrentLocation(ctx, AccuracyHigh)
	if err != nil {
		return geo.Point{}, "", err
	}
	address, err := s.geocoder.ReverseGeocode(ctx, point)
	if err != nil {
		logger.Warn("Reverse geocode failed, using placeholder address", "error", err)
		return point, CurrentLocationAddress, nil
	}
	return point, address, nil
}

// Close releases service resources.
func (s *Service) Close() {
	if s.geocoder != nil {
		s.geocoder.Close()
	}
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing location logger: %v", err)
		}
		closeLogger = nil
	}
}
