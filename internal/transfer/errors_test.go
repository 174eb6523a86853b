package transfer

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseServerError_UserMessage(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		statusText string
		body       string
		want       string
		wantCode   string
	}{
		{
			name:       "string detail",
			status:     500,
			statusText: "Internal Server Error",
			body:       `{"detail":"bad file"}`,
			want:       "Upload failed: bad file",
		},
		{
			name:       "structured detail",
			status:     401,
			statusText: "Unauthorized",
			body:       `{"detail":{"error":"password_required","message":"PDF is encrypted. Please provide the password."}}`,
			want:       "Upload failed: PDF is encrypted. Please provide the password.",
			wantCode:   "password_required",
		},
		{
			name:       "validation list",
			status:     422,
			statusText: "Unprocessable Entity",
			body:       `{"detail":[{"loc":["body","file"],"msg":"field required","type":"value_error.missing"}]}`,
			want:       "Upload failed: field required",
		},
		{
			name:       "json without detail",
			status:     404,
			statusText: "Not Found",
			body:       `{"error":"nope"}`,
			want:       "Upload failed: Not Found",
		},
		{
			name:       "empty string detail",
			status:     400,
			statusText: "Bad Request",
			body:       `{"detail":""}`,
			want:       "Upload failed: Bad Request",
		},
		{
			name:       "number detail",
			status:     500,
			statusText: "Internal Server Error",
			body:       `{"detail":42}`,
			want:       "Upload failed: 42",
		},
		{
			name:       "fractional detail",
			status:     500,
			statusText: "Internal Server Error",
			body:       `{"detail":1.50}`,
			want:       "Upload failed: 1.5",
		},
		{
			name:       "true detail",
			status:     500,
			statusText: "Internal Server Error",
			body:       `{"detail":true}`,
			want:       "Upload failed: true",
		},
		{
			name:       "zero detail",
			status:     500,
			statusText: "Internal Server Error",
			body:       `{"detail":0}`,
			want:       "Upload failed: Internal Server Error",
		},
		{
			name:       "false detail",
			status:     400,
			statusText: "Bad Request",
			body:       `{"detail":false}`,
			want:       "Upload failed: Bad Request",
		},
		{
			name:       "null detail",
			status:     400,
			statusText: "Bad Request",
			body:       `{"detail":null}`,
			want:       "Upload failed: Bad Request",
		},
		{
			name:       "byte order mark",
			status:     500,
			statusText: "Internal Server Error",
			body:       "\xef\xbb\xbf{\"detail\":\"bad file\"}",
			want:       "Upload failed: bad file",
		},
		{
			name:       "non json body",
			status:     500,
			statusText: "Internal Server Error",
			body:       "<not json>",
			want:       "Upload failed (500): Internal Server Error",
		},
		{
			name:       "empty body",
			status:     502,
			statusText: "Bad Gateway",
			body:       "",
			want:       "Upload failed (502): Bad Gateway",
		},
		{
			name:       "invalid utf8",
			status:     500,
			statusText: "Internal Server Error",
			body:       "\xff\xfe",
			want:       "Upload failed (500): Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := ParseServerError(tt.status, tt.statusText, []byte(tt.body))
			if got := se.UserMessage(); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
			if se.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", se.Code, tt.wantCode)
			}
			if se.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.status)
			}
		})
	}
}

func TestIsPasswordRequired(t *testing.T) {
	se := ParseServerError(401, "Unauthorized", []byte(`{"detail":{"error":"password_required","message":"PDF is encrypted"}}`))
	wrapped := fmt.Errorf("processing: %w", se)

	if !IsPasswordRequired(wrapped) {
		t.Error("expected password_required to be detected through wrapping")
	}
	if IsPasswordRequired(&ServerError{StatusCode: 500}) {
		t.Error("plain server error is not a password request")
	}
	if IsPasswordRequired(errors.New("boom")) {
		t.Error("unrelated error is not a password request")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&TransportError{Err: errors.New("dial tcp: refused")}, MessageConnectionFailed},
		{&ArtifactError{Err: errors.New("eof")}, MessageArtifactFailed},
		{fmt.Errorf("wrapped: %w", &TransportError{Err: errors.New("x")}), MessageConnectionFailed},
		{&DownloadError{Err: errors.New("disk full")}, "Failed to save the processed file. disk full"},
		{errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	for _, err := range []error{
		&TransportError{Err: cause},
		&ArtifactError{Err: cause},
		&DownloadError{Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}
