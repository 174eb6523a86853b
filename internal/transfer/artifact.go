package transfer

import (
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
)

// Artifact is the spreadsheet returned by the processing service.
// It is immutable once created.
type Artifact struct {
	Name        string // Suggested file name
	ContentType string
	Data        []byte

	// Metadata reported by the service, zero when absent
	ProcessingTime time.Duration
	PeopleCount    string

	CreatedAt time.Time
}

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

var filenamePattern = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)

// FileNameFromContentDisposition extracts the suggested file name from a
// Content-Disposition header value. It falls back to processed_data.xlsx
// when the header is absent or carries no usable name.
func FileNameFromContentDisposition(header string) string {
	name := ""
	if header != "" {
		if _, params, err := mime.ParseMediaType(header); err == nil {
			name = params["filename"]
		}
		if name == "" {
			if m := filenamePattern.FindStringSubmatch(header); m != nil {
				name = m[1]
			}
		}
	}

	name = strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
	// Never let the server pick a directory
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return constants.DefaultResultFileName
	}
	return name
}

// newArtifact materializes a successful response into an artifact.
func newArtifact(resp Response) (*Artifact, error) {
	if resp.BodyErr != nil {
		return nil, &ArtifactError{Err: resp.BodyErr}
	}

	a := &Artifact{
		Name:        FileNameFromContentDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        resp.Body,
		PeopleCount: resp.Header.Get(constants.PeopleCountHeader),
		CreatedAt:   time.Now(),
	}
	if a.ContentType == "" {
		a.ContentType = constants.ResultContentType
	}
	a.ProcessingTime = parseSeconds(resp.Header.Get(constants.ProcessingTimeHeader))
	return a, nil
}

// parseSeconds reads a decimal seconds value such as "12.34".
func parseSeconds(v string) time.Duration {
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(strings.TrimSpace(v) + "s")
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Response is the final HTTP answer to an upload.
type Response struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
	BodyErr    error // Set when the body could not be read completely
}
