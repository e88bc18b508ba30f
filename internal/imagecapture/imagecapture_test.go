package imagecapture

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/geo"
	"github.com/saathiconnect/saathi-go/internal/location"
)

// verifyNoLeaks checks for leaked goroutines, ignoring the rotating file
// logger's background worker.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

type stubCamera struct {
	handle Handle
	err    error
	delay  time.Duration
}

func (c *stubCamera) Capture(ctx context.Context) (Handle, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return Handle{}, ctx.Err()
		}
	}
	if c.err != nil {
		return Handle{}, c.err
	}
	return c.handle, nil
}

type stubLibrary struct {
	handle Handle
	err    error
}

func (l *stubLibrary) Pick(_ context.Context) (Handle, error) {
	if l.err != nil {
		return Handle{}, l.err
	}
	return l.handle, nil
}

type stubProvider struct {
	point geo.Point
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (p *stubProvider) CurrentPosition(ctx context.Context, _ location.Accuracy) (geo.Point, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return geo.Point{}, ctx.Err()
		}
	}
	if p.err != nil {
		return geo.Point{}, p.err
	}
	return p.point, nil
}

func TestCaptureFromCamera(t *testing.T) {
	defer verifyNoLeaks(t)

	camera := &stubCamera{handle: Handle{URI: "file:///tmp/shot.jpg"}}
	provider := &stubProvider{point: geo.NewPoint(19.0760, 72.8777)}
	svc := NewService(camera, &stubLibrary{}, provider)

	capture, err := svc.CaptureFromCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/shot.jpg", capture.Handle.URI)
	require.NotNil(t, capture.CaptureLocation)
	assert.InDelta(t, 19.0760, capture.CaptureLocation.Latitude, 1e-9)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestCaptureFromCameraWaitsForSlowFix(t *testing.T) {
	defer verifyNoLeaks(t)

	camera := &stubCamera{handle: Handle{URI: "file:///tmp/fast.jpg"}}
	provider := &stubProvider{point: geo.NewPoint(13.0827, 80.2707), delay: 50 * time.Millisecond}
	svc := NewService(camera, &stubLibrary{}, provider)

	capture, err := svc.CaptureFromCamera(context.Background())
	require.NoError(t, err)
	require.NotNil(t, capture.CaptureLocation)
	assert.InDelta(t, 80.2707, capture.CaptureLocation.Longitude, 1e-9)
}

func TestCaptureFromCameraFixFailureIsNotFatal(t *testing.T) {
	defer verifyNoLeaks(t)

	camera := &stubCamera{handle: Handle{URI: "file:///tmp/nofix.jpg"}}
	provider := &stubProvider{err: location.PermissionDenied()}
	svc := NewService(camera, &stubLibrary{}, provider)

	capture, err := svc.CaptureFromCamera(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/nofix.jpg", capture.Handle.URI)
	assert.Nil(t, capture.CaptureLocation)
}

func TestCaptureFromCameraCancelDiscardsLateFix(t *testing.T) {
	defer verifyNoLeaks(t)

	camera := &stubCamera{err: ErrCancelled}
	provider := &stubProvider{point: geo.NewPoint(19.0760, 72.8777), delay: 30 * time.Millisecond}
	svc := NewService(camera, &stubLibrary{}, provider)

	capture, err := svc.CaptureFromCamera(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Empty(t, capture.Handle.URI)
	assert.Nil(t, capture.CaptureLocation)
	// The fix goroutine still completed, its result was thrown away.
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestCaptureFromCameraFailure(t *testing.T) {
	defer verifyNoLeaks(t)

	hwErr := errors.Newf("camera hardware fault").
		Component("imagecapture").
		Category(errors.CategoryImageCapture).
		Build()
	camera := &stubCamera{err: hwErr}
	svc := NewService(camera, &stubLibrary{}, &stubProvider{point: geo.NewPoint(1, 1)})

	_, err := svc.CaptureFromCamera(context.Background())
	require.Error(t, err)
	assert.False(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestCaptureFromLibrary(t *testing.T) {
	exifPoint := geo.NewPoint(22.5726, 88.3639)
	library := &stubLibrary{handle: Handle{URI: "file:///tmp/gallery.jpg", EXIFGPS: &exifPoint}}
	provider := &stubProvider{point: geo.NewPoint(1, 1)}
	svc := NewService(&stubCamera{}, library, provider)

	handle, err := svc.CaptureFromLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/gallery.jpg", handle.URI)
	require.NotNil(t, handle.EXIFGPS)
	assert.InDelta(t, 22.5726, handle.EXIFGPS.Latitude, 1e-9)
	// Library selection never requests a GPS fix.
	assert.Equal(t, int32(0), provider.calls.Load())
}

func TestCaptureFromLibraryCancelled(t *testing.T) {
	library := &stubLibrary{err: ErrCancelled}
	svc := NewService(&stubCamera{}, library, &stubProvider{})

	_, err := svc.CaptureFromLibrary(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}

func TestExtractGPSNoExif(t *testing.T) {
	// A plain encoded JPEG carries no EXIF block.
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	point, err := ExtractGPS(&buf)
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestExtractGPSGarbageInput(t *testing.T) {
	point, err := ExtractGPS(bytes.NewReader([]byte("not an image")))
	require.NoError(t, err)
	assert.Nil(t, point)
}
