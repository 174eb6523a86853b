package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// User-visible messages for failures that carry no server detail.
const (
	MessageConnectionFailed = "Upload failed. Please check your connection and try again."
	MessageArtifactFailed   = "Failed to process the file. Please try again."
	MessageDownloadFailed   = "Failed to save the processed file."
)

// UserFacing is implemented by errors that carry a message fit for end users.
type UserFacing interface {
	error
	UserMessage() string
}

// TransportError is a connection-level failure: no HTTP response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage returns the generic connectivity message.
func (e *TransportError) UserMessage() string { return MessageConnectionFailed }

// ServerError is a non-200 answer from the processing service.
type ServerError struct {
	StatusCode int
	StatusText string
	Detail     string // Human-readable detail from the JSON body, if any
	Code       string // Machine code from a structured detail, e.g. password_required
	JSONBody   bool   // Body was valid JSON
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d %s", e.StatusCode, e.StatusText)
}

// UserMessage follows the service's error contract: the JSON detail when
// present, the status text for JSON without detail, and status code plus
// text for anything else.
func (e *ServerError) UserMessage() string {
	switch {
	case e.Detail != "":
		return "Upload failed: " + e.Detail
	case e.JSONBody:
		return "Upload failed: " + e.StatusText
	default:
		return fmt.Sprintf("Upload failed (%d): %s", e.StatusCode, e.StatusText)
	}
}

// PasswordRequired reports whether the service asked for a PDF password.
func (e *ServerError) PasswordRequired() bool {
	return e.Code == "password_required"
}

// ArtifactError means a 200 response could not be turned into a result file.
type ArtifactError struct {
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("failed to materialize result: %v", e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// UserMessage returns the generic processing failure message.
func (e *ArtifactError) UserMessage() string { return MessageArtifactFailed }

// DownloadError wraps a failure of the download effect.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UserMessage includes the underlying cause, which is local to the user's machine.
func (e *DownloadError) UserMessage() string {
	return fmt.Sprintf("%s %v", MessageDownloadFailed, e.Err)
}

// UserMessage returns the message to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}
	return err.Error()
}

// IsPasswordRequired reports whether err is a server request for a PDF password.
func IsPasswordRequired(err error) bool {
	var se *ServerError
	return errors.As(err, &se) && se.PasswordRequired()
}

// ParseServerError decodes a non-200 response into a ServerError.
//
// The service answers {"detail": "..."} for plain failures and
// {"detail": {"error": "...", "message": "..."}} for structured ones.
// Validation failures carry a list of {"msg": "..."} entries. Number and
// boolean details are shown as text, except 0 and false which count as absent.
func ParseServerError(statusCode int, statusText string, body []byte) *ServerError {
	se := &ServerError{StatusCode: statusCode, StatusText: statusText}
	body = bytes.TrimPrefix(body, utf8BOM)

	if !utf8.Valid(body) || !json.Valid(body) {
		return se
	}
	se.JSONBody = true

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return se
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		se.Detail = text
		return se
	}
	if text, ok := scalarDetail(payload.Detail); ok {
		se.Detail = text
		return se
	}

	var structured struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Detail, &structured); err == nil {
		se.Code = structured.Error
		se.Detail = structured.Message
		if se.Detail == "" {
			se.Detail = structured.Error
		}
		return se
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		se.Detail = strings.Join(msgs, "; ")
	}
	return se
}

var utf8BOM = []byte("\xef\xbb\xbf")

// scalarDetail renders a number or boolean detail. ok is false for other
// JSON values.
func scalarDetail(raw json.RawMessage) (text string, ok bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if !b {
			return "", true
		}
		return "true", true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || strings.HasPrefix(strings.TrimSpace(string(raw)), `"`) {
		return "", false
	}
	f, err := n.Float64()
	if err != nil {
		return n.String(), true
	}
	if f == 0 {
		return "", true
	}
	if math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}
