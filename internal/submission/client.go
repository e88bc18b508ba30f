// Package submission dispatches completed reports to the backend as
// multipart uploads.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/saathiconnect/saathi-go/internal/conf"
	"github.com/saathiconnect/saathi-go/internal/errors"
	"github.com/saathiconnect/saathi-go/internal/logging"
	"github.com/saathiconnect/saathi-go/internal/report"
)

// Package-level logger specific to the submission service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "submission.log")
	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "submission", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize submission file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.NopLogger("submission")
		closeLogger = func() error { return nil }
	}
}

// User-facing messages for dispatch failures. The backend's own message
// wins when it provides one.
const (
	MsgNetworkError   = "Network error. Please check your connection."
	MsgServerError    = "Server error. Please try again later."
	MsgRejectedFields = "Please check all required fields and try again."
)

// Client uploads reports to the backend. A dispatch is not idempotent:
// a timeout after the server accepted the upload can produce a duplicate
// report on retry. Deduplication would need backend support.
type Client struct {
	settings   conf.SubmissionSettings
	httpClient *http.Client
}

// NewClient creates a submission client.
func NewClient(settings conf.SubmissionSettings) *Client {
	return &Client{
		settings:   settings,
		httpClient: &http.Client{Timeout: settings.Timeout},
	}
}

// Dispatch uploads one report. Authenticated identities go to the bearer
// endpoint, guests to the anonymous one. There are no automatic retries,
// the caller decides whether to resubmit.
func (c *Client) Dispatch(ctx context.Context, payload report.Payload, identity report.Identity) error {
	endpoint := c.settings.AnonymousEndpoint
	if identity.IsAuthenticated() {
		endpoint = c.settings.Endpoint
	}
	targetURL := c.settings.BaseURL + endpoint

	body, contentType, err := encodeMultipart(&payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, body)
	if err != nil {
		return errors.New(err).
			Component("submission").
			Category(errors.CategorySubmission).
			Build()
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if identity.IsAuthenticated() {
		req.Header.Set("Authorization", "Bearer "+identity.Token())
	}

	logger.Info("Dispatching report",
		"url", targetURL,
		"authenticated", identity.IsAuthenticated(),
		"authenticity", payload.LocationAuthenticity)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Report upload failed in transport", "url", targetURL, "error", err)
		return errors.Newf("%s", MsgNetworkError).
			Component("submission").
			Category(errors.CategoryNetwork).
			Context("url", targetURL).
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("Report accepted", "status_code", resp.StatusCode)
		return nil
	}
	return c.classifyRejection(resp)
}

// classifyRejection turns a non-2xx response into the message shown to
// the user. A message provided by the backend is passed through verbatim.
func (c *Client) classifyRejection(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	logger.Warn("Report rejected", "status_code", resp.StatusCode, "body_size", len(body))

	message := serverMessage(body)
	if message == "" {
		if resp.StatusCode >= 500 {
			message = MsgServerError
		} else {
			message = MsgRejectedFields
		}
	}
	return errors.Newf("%s", message).
		Component("submission").
		Category(errors.CategorySubmission).
		Context("status_code", resp.StatusCode).
		Build()
}

// serverMessage extracts the backend's message field, empty when the body
// is not JSON or carries none.
func serverMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Message)
}

// encodeMultipart builds the upload body. The image part streams from the
// payload's local file.
func encodeMultipart(payload *report.Payload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := map[string]string{
		"description":          payload.Description,
		"category":             payload.Category,
		"latitude":             strconv.FormatFloat(payload.Latitude, 'f', -1, 64),
		"longitude":            strconv.FormatFloat(payload.Longitude, 'f', -1, 64),
		"address":              payload.Address,
		"locationAuthenticity": payload.LocationAuthenticity,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", encodeError(err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename=%q`, payload.ImageFilename))
	header.Set("Content-Type", payload.ImageContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", encodeError(err)
	}

	f, err := os.Open(payload.ImagePath)
	if err != nil {
		return nil, "", errors.New(err).
			Component("submission").
			Category(errors.CategoryFileIO).
			Context("image_path", payload.ImagePath).
			Build()
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", encodeError(err)
	}

	if err := w.Close(); err != nil {
		return nil, "", encodeError(err)
	}
	return buf, w.FormDataContentType(), nil
}

func encodeError(err error) error {
	return errors.New(err).
		Component("submission").
		Category(errors.CategorySubmission).
		Context("operation", "encode_multipart").
		Build()
}

// Close releases client resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing submission logger: %v", err)
		}
		closeLogger = nil
	}
}
