package imagecapture

import (
	"io"
	"math"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
)

// ExtractGPS reads EXIF GPS metadata from a JPEG stream. It returns nil
// when the image carries no usable GPS tags, absence is not an error.
func ExtractGPS(r io.Reader) (*geo.Point, error) {
	x, err := exif.Decode(r)
	if err != nil {
		// No EXIF block at all is common for downloaded or edited images.
		logger.Debug("No EXIF data in image", "error", err)
		return nil, nil
	}

	lat, lon, err := x.LatLong()
	if err != nil {
		logger.Debug("EXIF present but no GPS tags", "error", err)
		return nil, nil
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return nil, nil
	}

	point := geo.NewPoint(lat, lon)
	if !point.Valid() {
		return nil, nil
	}
	return &point, nil
}

// ExtractGPSFromFile reads EXIF GPS metadata from an image file on disk.
func ExtractGPSFromFile(path string) (*geo.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imagecapture").
			Category(errors.CategoryFileIO).
			Build()
	}
	defer func() {
		_ = f.Close()
	}()
	return ExtractGPS(f)
}
