package report

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/imagecapture"
	"github.com/saathiconnect/saathi-go/internal/location"
	"github.com/saathiconnect/saathi-go/internal/logging"
)

// Package-level logger specific to the report service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "report.log")
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "report", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize report file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.NopLogger("report")
		closeLogger = func() error { return nil }
	}
}

// IncompleteMessage is shown when the user submits with required fields
// missing.
const IncompleteMessage = "Please fill all fields: photo, description, category, and location."

// CategorySuggester produces a category suggestion for an image. The
// classifier engine satisfies this. The second return value is false when
// no suggestion could be made.
type CategorySuggester interface {
	Classify(ctx context.Context, path string) (Category, bool)
}

// Capturer acquires report photos. The image capture service satisfies
// this.
type Capturer interface {
	CaptureFromCamera(ctx context.Context) (imagecapture.CameraCapture, error)
	CaptureFromLibrary(ctx context.Context) (imagecapture.Handle, error)
}

// Locator resolves the device's own position. The location service
// satisfies this.
type Locator interface {
	CurrentLocationWithAddress(ctx context.Context) (geo.Point, string, error)
}

// AddressSearcher resolves address text and coordinates. The geocoder
// satisfies this.
type AddressSearcher interface {
	ForwardGeocode(ctx context.Context, query string) (geo.Point, bool, error)
	ReverseGeocode(ctx context.Context, point geo.Point) (string, error)
}

// Dispatcher sends a completed report to the backend. The submission
// client satisfies this.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload Payload, identity Identity) error
}

// Reachability answers whether the network looks usable right now. The
// check runs before any dispatch so an offline draft is never lost to a
// doomed upload.
type Reachability interface {
	Online(ctx context.Context) bool
}

// Controller owns a single report draft and its lifecycle. All methods
// are safe for concurrent use, the suggestion goroutine and UI calls may
// interleave freely.
type Controller struct {
	capturer     Capturer
	locator      Locator
	searcher     AddressSearcher
	suggester    CategorySuggester
	dispatcher   Dispatcher
	reachability Reachability
	identity     Identity

	now func() time.Time

	mu         sync.Mutex
	state      DraftState
	draft      Draft
	generation uint64
	// userSetCategory blocks suggestions from overwriting a category the
	// user chose by hand.
	userSetCategory bool
	inflight        sync.WaitGroup
}

// NewController creates a controller for one report draft.
func NewController(capturer Capturer, locator Locator, searcher AddressSearcher,
	suggester CategorySuggester, dispatcher Dispatcher, reachability Reachability,
	identity Identity) *Controller {
	return &Controller{
		capturer:     capturer,
		locator:      locator,
		searcher:     searcher,
		suggester:    suggester,
		dispatcher:   dispatcher,
		reachability: reachability,
		identity:     identity,
		now:          time.Now,
		state:        StateEmpty,
	}
}

// State returns the draft's current lifecycle state.
func (c *Controller) State() DraftState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current draft for display.
func (c *Controller) Snapshot() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// StartCameraCapture opens the camera alongside a GPS fix and attaches
// the result to the draft. Cancelling the camera leaves the draft exactly
// as it was, including any location fix acquired in the meantime being
// discarded.
func (c *Controller) StartCameraCapture(ctx context.Context) error {
	prev, err := c.beginCapture()
	if err != nil {
		return err
	}

	capture, err := c.capturer.CaptureFromCamera(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = prev
		if errors.IsCategory(err, errors.CategoryCancellation) {
			logger.Debug("Camera capture cancelled")
			return nil
		}
		return err
	}

	c.attachImageLocked(capture.Handle, false, capture.CaptureLocation)
	c.suggestLocked(ctx, capture.Handle.URI)
	return nil
}

// StartLibraryCapture opens the photo picker and attaches the selection
// to the draft. Gallery images carry no capture-time fix.
func (c *Controller) StartLibraryCapture(ctx context.Context) error {
	prev, err := c.beginCapture()
	if err != nil {
		return err
	}

	handle, err := c.capturer.CaptureFromLibrary(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = prev
		if errors.IsCategory(err, errors.CategoryCancellation) {
			logger.Debug("Library pick cancelled")
			return nil
		}
		return err
	}

	c.attachImageLocked(handle, true, nil)
	c.suggestLocked(ctx, handle.URI)
	return nil
}

// beginCapture moves the draft into the capturing state, recording the
// state to restore on cancellation.
func (c *Controller) beginCapture() (DraftState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateEmpty, StateEditing, StateFailed:
		prev := c.state
		c.state = StateCapturing
		return prev, nil
	default:
		return c.state, errors.Newf("cannot capture while %s", c.state).
			Component("report").
			Category(errors.CategoryState).
			Build()
	}
}

// attachImageLocked replaces the draft photo. A new photo invalidates any
// pending suggestion and re-arms automatic category suggestions.
func (c *Controller) attachImageLocked(handle imagecapture.Handle, fromGallery bool, fix *geo.Point) {
	c.generation++
	c.userSetCategory = false
	c.draft.Image = handle
	c.draft.FromGallery = fromGallery
	c.draft.CaptureLocation = fix
	c.state = StateEditing
	logger.Debug("Photo attached",
		"uri", handle.URI,
		"from_gallery", fromGallery,
		"has_fix", fix != nil,
		"generation", c.generation)
}

// suggestLocked starts an asynchronous category suggestion for the
// current photo. The result is applied only if it still belongs to the
// current photo and the user has not picked a category themselves.
func (c *Controller) suggestLocked(ctx context.Context, path string) {
	if c.suggester == nil {
		return
	}
	gen := c.generation
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		category, ok := c.suggester.Classify(ctx, path)
		c.applySuggestion(gen, category, ok)
	}()
}

func (c *Controller) applySuggestion(gen uint64, category Category, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		return
	}
	if gen != c.generation {
		logger.Debug("Discarding stale category suggestion", "suggestion_generation", gen, "current_generation", c.generation)
		return
	}
	if c.userSetCategory {
		logger.Debug("Keeping user-selected category over suggestion")
		return
	}
	c.draft.Category = category
	logger.Debug("Category suggestion applied", "category", category.String())
}

// WaitForSuggestions blocks until all in-flight category suggestions have
// settled. Intended for shutdown ordering.
func (c *Controller) WaitForSuggestions() {
	c.inflight.Wait()
}

// SetDescription updates the draft description.
func (c *Controller) SetDescription(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Description = text
}

// SetCategory records a category the user picked by hand. Later
// suggestions will not overwrite it.
func (c *Controller) SetCategory(category Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Category = category
	c.userSetCategory = true
}

// SetClaimedLocation sets the claimed location and its display address
// together.
func (c *Controller) SetClaimedLocation(point geo.Point, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := point
	c.draft.Location = &p
	c.draft.Address = address
	logger.Debug("Claimed location set", "lat", point.Latitude, "lon", point.Longitude, "address", address)
}

// ApplyPickedLocation sets a map-picked point as the claimed location,
// resolving its address. A geocode failure falls back to a placeholder,
// picking a location never fails on a flaky geocoder.
func (c *Controller) ApplyPickedLocation(ctx context.Context, point geo.Point) {
	address, err := c.searcher.ReverseGeocode(ctx, point)
	if err != nil {
		logger.Warn("Reverse geocode failed for picked location, using placeholder", "error", err)
		address = location.PlaceholderAddress
	}
	c.SetClaimedLocation(point, address)
}

// UseCurrentLocation claims the device's own position for the report.
func (c *Controller) UseCurrentLocation(ctx context.Context) error {
	point, address, err := c.locator.CurrentLocationWithAddress(ctx)
	if err != nil {
		return err
	}
	c.SetClaimedLocation(point, address)
	return nil
}

// SearchAddress resolves address text to a candidate location. Queries
// below the geocoder's minimum length are a no-op and report no result.
func (c *Controller) SearchAddress(ctx context.Context, query string) (geo.Point, bool, error) {
	return c.searcher.ForwardGeocode(ctx, query)
}

// Submit validates the draft, evaluates authenticity, and dispatches the
// report. On success the draft is cleared. On any failure the draft is
// preserved for editing and retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateEditing && c.state != StateFailed {
		state := c.state
		c.mu.Unlock()
		return errors.Newf("cannot submit while %s", state).
			Component("report").
			Category(errors.CategoryState).
			Build()
	}
	if err := c.validateLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	verdict := c.draft.Authenticity()
	payload := BuildPayload(&c.draft, verdict, c.now())
	identity := c.identity
	c.state = StateSubmitting
	c.mu.Unlock()

	logger.Info("Submitting report",
		"category", payload.Category,
		"authenticity", payload.LocationAuthenticity,
		"authenticated", identity.IsAuthenticated())

	if !c.reachability.Online(ctx) {
		c.finish(StateFailed)
		logger.Warn("Submission skipped, device is offline")
		return errors.Newf("Network error. Please check your connection.").
			Component("report").
			Category(errors.CategoryOffline).
			Build()
	}

	if err := c.dispatcher.Dispatch(ctx, payload, identity); err != nil {
		c.finish(StateFailed)
		logger.Error("Report dispatch failed", "error", err)
		return err
	}

	c.mu.Lock()
	c.state = StateSubmitted
	c.draft = Draft{}
	c.generation++
	c.userSetCategory = false
	c.mu.Unlock()
	logger.Info("Report submitted")
	return nil
}

// validateLocked checks the fields the backend requires. All missing
// fields are reported in one message so the user fixes them in one pass.
func (c *Controller) validateLocked() error {
	missing := !c.draft.HasImage() ||
		strings.TrimSpace(c.draft.Description) == "" ||
		!c.draft.Category.Known() ||
		c.draft.Location == nil
	if !missing {
		return nil
	}
	return errors.Newf("%s", IncompleteMessage).
		Component("report").
		Category(errors.CategoryValidation).
		Build()
}

func (c *Controller) finish(state DraftState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// Cancel discards the draft entirely.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{}
	c.generation++
	c.userSetCategory = false
	c.state = StateEmpty
	logger.Debug("Draft cancelled")
}

// Close waits for background work and releases controller resources.
func (c *Controller) Close() {
	c.inflight.Wait()
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing report logger: %v", err)
		}
		closeLogger = nil
	}
}
