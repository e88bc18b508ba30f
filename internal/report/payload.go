package report

import (
	"fmt"
	"time"
)

// Payload is the wire form of a completed report, ready for multipart
// dispatch.
type Payload struct {
	Description          string
	Category             string
	Latitude             float64
	Longitude            float64
	Address              string
	LocationAuthenticity string

	// ImagePath is the local file to stream as the image part.
	ImagePath        string
	ImageFilename    string
	ImageContentType string
}

// BuildPayload converts a validated draft into its wire form. The image
// part is named after the submission time so retries after an edit get a
// fresh filename.
func BuildPayload(d *Draft, verdict Verdict, now time.Time) Payload {
	return Payload{
		Description:          d.Description,
		Category:             d.Category.String(),
		Latitude:             d.Location.Latitude,
		Longitude:            d.Location.Longitude,
		Address:              d.Address,
		LocationAuthenticity: verdict.String(),
		ImagePath:            d.Image.URI,
		ImageFilename:        fmt.Sprintf("report_%d.jpg", now.UnixMilli()),
		ImageContentType:     "image/jpeg",
	}
}

// Identity selects the submission route. The zero value is a guest.
type Identity struct {
	token string
}

// Authenticated returns an identity carrying a bearer token.
func Authenticated(token string) Identity {
	return Identity{token: token}
}

// Guest returns the anonymous identity.
func Guest() Identity {
	return Identity{}
}

// IsAuthenticated reports whether the identity carries a token.
func (i Identity) IsAuthenticated() bool {
	return i.token != ""
}

// Token returns the bearer token, empty for guests.
func (i Identity) Token() string {
	return i.token
}
