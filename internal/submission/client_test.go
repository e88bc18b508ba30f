package submission

import (
	"context"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/report"
)

func testPayload(t *testing.T) report.Payload {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shot.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil))
	require.NoError(t, f.Close())

	return report.Payload{
		Description:          "Deep pothole near the bus stop",
		Category:             "Pothole",
		Latitude:             19.0760,
		Longitude:            72.8777,
		Address:              "Linking Road, Mumbai",
		LocationAuthenticity: "VERIFIED_IN_APP",
		ImagePath:            path,
		ImageFilename:        "report_1726000000000.jpg",
		ImageContentType:     "image/jpeg",
	}
}

func testClient(baseURL string) *Client {
	return NewClient(conf.SubmissionSettings{
		BaseURL:           baseURL,
		Endpoint:          "/api/reports",
		AnonymousEndpoint: "/api/reports/anonymous",
		Timeout:           5 * time.Second,
	})
}

func TestDispatchAuthenticated(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm map[string]string
	var gotFilename, gotPartType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotForm = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			gotForm[key] = values[0]
		}
		files := r.MultipartForm.File["image"]
		require.Len(t, files, 1)
		gotFilename = files[0].Filename
		gotPartType = files[0].Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	defer client.httpClient.CloseIdleConnections()

	err := client.Dispatch(context.Background(), testPayload(t), report.Authenticated("tok-1"))
	require.NoError(t, err)

	assert.Equal(t, "/api/reports", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "Deep pothole near the bus stop", gotForm["description"])
	assert.Equal(t, "Pothole", gotForm["category"])
	assert.Equal(t, "19.076", gotForm["latitude"])
	assert.Equal(t, "72.8777", gotForm["longitude"])
	assert.Equal(t, "Linking Road, Mumbai", gotForm["address"])
	assert.Equal(t, "VERIFIED_IN_APP", gotForm["locationAuthenticity"])
	assert.Equal(t, "report_1726000000000.jpg", gotFilename)
	assert.Equal(t, "image/jpeg", gotPartType)
}

func TestDispatchAnonymousRoute(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.Dispatch(context.Background(), testPayload(t), report.Guest())
	require.NoError(t, err)

	assert.Equal(t, "/api/reports/anonymous", gotPath)
	assert.Empty(t, gotAuth)
}

func TestDispatchServerMessagePassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Category is not accepted in this ward"}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.Dispatch(context.Background(), testPayload(t), report.Guest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Category is not accepted in this ward")
	assert.True(t, errors.IsCategory(err, errors.CategorySubmission))
}

func TestDispatchBadRequestWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.Dispatch(context.Background(), testPayload(t), report.Guest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgRejectedFields)
}

func TestDispatchServerErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>gateway exploded</html>"))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.Dispatch(context.Background(), testPayload(t), report.Guest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgServerError)
}

func TestDispatchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := testClient(srv.URL)
	err := client.Dispatch(context.Background(), testPayload(t), report.Guest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), MsgNetworkError)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestDispatchMissingImageFile(t *testing.T) {
	payload := testPayload(t)
	payload.ImagePath = filepath.Join(t.TempDir(), "gone.jpg")

	client := testClient("http://localhost:0")
	err := client.Dispatch(context.Background(), payload, report.Guest())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestProbeReachability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	probe := NewProbeReachability(srv.URL)
	assert.True(t, probe.Online(context.Background()))
}

func TestProbeReachabilityOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	probe := NewProbeReachability(baseURL)
	assert.False(t, probe.Online(context.Background()))
}

func TestProbeReachabilityBadURL(t *testing.T) {
	probe := NewProbeReachability("://not-a-url")
	assert.False(t, probe.Online(context.Background()))
}
