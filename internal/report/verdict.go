package report

import (
	"github.com/saathiconnect/saathi-go/internal/geo"
)

// LocationMatchThresholdMeters is the maximum distance between the claimed
// report location and the photo's location evidence for the report to count
// as verified. A distance of exactly the threshold is a mismatch.
const LocationMatchThresholdMeters = 200.0

// Verdict is the authenticity assessment of a report's photo relative to
// its claimed location.
type Verdict int

const (
	// VerdictNotAvailable means no photo has been evaluated yet.
	VerdictNotAvailable Verdict = iota
	// VerdictVerifiedInApp means the photo was taken in the app and its
	// location evidence is within the threshold of the claimed location.
	VerdictVerifiedInApp
	// VerdictLocationMismatch means location evidence exists but is at or
	// beyond the threshold from the claimed location.
	VerdictLocationMismatch
	// VerdictGalleryUpload means the photo came from the device library.
	VerdictGalleryUpload
	// VerdictNoEXIFData means a camera photo has no location evidence at
	// all, neither a capture-time fix nor EXIF GPS tags.
	VerdictNoEXIFData
)

var verdictWire = map[Verdict]string{
	VerdictNotAvailable:     "NOT_AVAILABLE",
	VerdictVerifiedInApp:    "VERIFIED_IN_APP",
	VerdictLocationMismatch: "LOCATION_MISMATCH",
	VerdictGalleryUpload:    "GALLERY_UPLOAD",
	VerdictNoEXIFData:       "NO_EXIF_DATA",
}

// String returns the wire form of the verdict.
func (v Verdict) String() string {
	if s, ok := verdictWire[v]; ok {
		return s
	}
	return "NOT_AVAILABLE"
}

// Evidence is the location evidence attached to a photo.
type Evidence struct {
	// FromGallery marks the photo as a library selection rather than an
	// in-app capture.
	FromGallery bool
	// CaptureLocation is the GPS fix taken alongside an in-app camera
	// capture, nil when no fix was obtained.
	CaptureLocation *geo.Point
	// EXIFGPS is the GPS position embedded in the image metadata, nil
	// when absent.
	EXIFGPS *geo.Point
}

// EvaluateAuthenticity compares a photo's location evidence against the
// claimed report location.
//
// Gallery photos are always GALLERY_UPLOAD regardless of any evidence. For
// camera photos the capture-time fix is authoritative when present; EXIF
// GPS is consulted only when there is no fix. A camera photo with neither
// is NO_EXIF_DATA.
func EvaluateAuthenticity(claimed geo.Point, ev Evidence) Verdict {
	if ev.FromGallery {
		return VerdictGalleryUpload
	}
	if ev.CaptureLocation != nil {
		return compareDistance(claimed, *ev.CaptureLocation)
	}
	if ev.EXIFGPS != nil {
		return compareDistance(claimed, *ev.EXIFGPS)
	}
	return VerdictNoEXIFData
}

func compareDistance(claimed, evidence geo.Point) Verdict {
	if geo.ApproxDistanceMeters(claimed, evidence) < LocationMatchThresholdMeters {
		return VerdictVerifiedInApp
	}
	return VerdictLocationMismatch
}
