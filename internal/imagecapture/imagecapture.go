// Package imagecapture acquires report photos from the device camera or
// photo library. Camera capture runs concurrently with a GPS fix so the
// moment of capture can be tied to a location.
package imagecapture

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/location"
	"github.com/saathiconnect/saathi-go/internal/logging"
)

// Package-level logger specific to the image capture service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "imagecapture.log")
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "imagecapture", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize imagecapture file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.NopLogger("imagecapture")
		closeLogger = func() error { return nil }
	}
}

// Handle identifies a captured or selected image. EXIFGPS is nil when the
// image carries no GPS metadata.
type Handle struct {
	URI     string
	EXIFGPS *geo.Point
}

// CameraCapture is the result of a camera capture. CaptureLocation is the
// GPS fix acquired alongside the shot, nil when no fix could be obtained.
type CameraCapture struct {
	Handle          Handle
	CaptureLocation *geo.Point
}

// ErrCancelled is returned when the user dismisses the camera or picker
// without producing an image.
var ErrCancelled = errors.Newf("image capture cancelled").
	Component("imagecapture").
	Category(errors.CategoryCancellation).
	Build()

// CameraSource abstracts the platform camera. Implementations return
// ErrCancelled when the user backs out.
type CameraSource interface {
	Capture(ctx context.Context) (Handle, error)
}

// LibrarySource abstracts the platform photo picker. Implementations return
// ErrCancelled when the user backs out.
type LibrarySource interface {
	Pick(ctx context.Context) (Handle, error)
}

// Service coordinates image acquisition with location capture.
type Service struct {
	camera   CameraSource
	library  LibrarySource
	provider location.PositionProvider
}

// NewService creates an image capture service.
func NewService(camera CameraSource, library LibrarySource, provider location.PositionProvider) *Service {
	return &Service{camera: camera, library: library, provider: provider}
}

// CaptureFromCamera opens the camera and, in parallel, requests a
// high-accuracy GPS fix. Both operations are waited for. A failed or
// missing fix never fails the capture, the location is simply absent.
// If the user cancels the camera, any fix that arrives is discarded and
// ErrCancelled is returned.
func (s *Service) CaptureFromCamera(ctx context.Context) (CameraCapture, error) {
	type fixResult struct {
		point geo.Point
		err   error
	}
	fixCh := make(chan fixResult, 1)

	go func() {
		point, err := s.provider.CurrentPosition(ctx, location.AccuracyHigh)
		fixCh <- fixResult{point: point, err: err}
	}()

	handle, captureErr := s.camera.Capture(ctx)
	fix := <-fixCh

	if captureErr != nil {
		if errors.IsCategory(captureErr, errors.CategoryCancellation) {
			logger.Debug("Camera capture cancelled, discarding location fix")
			return CameraCapture{}, captureErr
		}
		logger.Error("Camera capture failed", "error", captureErr)
		return CameraCapture{}, captureErr
	}

	capture := CameraCapture{Handle: handle}
	if fix.err != nil {
		logger.Warn("Location fix failed during camera capture, proceeding without", "error", fix.err)
	} else {
		point := fix.point
		capture.CaptureLocation = &point
		logger.Debug("Camera capture with location fix",
			"uri", handle.URI, "lat", point.Latitude, "lon", point.Longitude)
	}
	return capture, nil
}

// CaptureFromLibrary opens the photo picker. No location fix is requested,
// a library image says nothing about where the device is now.
func (s *Service) CaptureFromLibrary(ctx context.Context) (Handle, error) {
	handle, err := s.library.Pick(ctx)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryCancellation) {
			logger.Debug("Library pick cancelled")
		} else {
			logger.Error("Library pick failed", "error", err)
		}
		return Handle{}, err
	}
	logger.Debug("Library image selected", "uri", handle.URI, "has_exif_gps", handle.EXIFGPS != nil)
	return handle, nil
}

// Close releases service resources.
func (s *Service) Close() {
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing imagecapture logger: %v", err)
		}
		closeLogger = nil
	}
}
