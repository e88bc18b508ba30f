package report

import (
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/imagecapture"
)

// DraftState is the lifecycle state of a report draft.
type DraftState int

const (
	// StateEmpty means no photo has been attached yet.
	StateEmpty DraftState = iota
	// StateCapturing means a camera or picker session is in progress.
	StateCapturing
	// StateEditing means a photo is attached and fields can be edited.
	StateEditing
	// StateSubmitting means a dispatch is in flight.
	StateSubmitting
	// StateSubmitted means the report was accepted by the backend.
	StateSubmitted
	// StateFailed means the last dispatch failed. The draft is preserved
	// and can be edited and resubmitted.
	StateFailed
)

func (s DraftState) String() string {
	switch s {
	case StateCapturing:
		return "capturing"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Draft is an in-progress report. All fields except the photo may be
// empty until submission, validation runs when the user submits.
type Draft struct {
	Image           imagecapture.Handle
	FromGallery     bool
	CaptureLocation *geo.Point

	Description string
	Category    Category

	// Location is the claimed report location, nil until the user picks
	// one or uses the device position. Address is its display form, the
	// two are always set together.
	Location *geo.Point
	Address  string
}

// HasImage reports whether a photo is attached.
func (d *Draft) HasImage() bool {
	return d.Image.URI != ""
}

// Evidence returns the photo's location evidence for authenticity
// evaluation.
func (d *Draft) Evidence() Evidence {
	return Evidence{
		FromGallery:     d.FromGallery,
		CaptureLocation: d.CaptureLocation,
		EXIFGPS:         d.Image.EXIFGPS,
	}
}

// Authenticity evaluates the draft's verdict against its claimed
// location. Without a photo or a claimed location there is nothing to
// compare and the verdict is not available.
func (d *Draft) Authenticity() Verdict {
	if !d.HasImage() || d.Location == nil {
		return VerdictNotAvailable
	}
	return EvaluateAuthenticity(*d.Location, d.Evidence())
}
