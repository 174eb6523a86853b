package transfer

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestFileNameFromContentDisposition(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="out.xlsx"`, "out.xlsx"},
		{`attachment; filename=out.xlsx`, "out.xlsx"},
		{`ATTACHMENT; FILENAME="Lohnkonto 2024.xlsx"`, "Lohnkonto 2024.xlsx"},
		{`attachment; filename*=utf-8''L%C3%B6hne.xlsx`, "Löhne.xlsx"},
		{`attachment; filename="broken.xlsx`, "broken.xlsx"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{`attachment; filename=C:\temp\out.xlsx`, "out.xlsx"},
		{`attachment; filename=""`, "processed_data.xlsx"},
		{`attachment`, "processed_data.xlsx"},
		{``, "processed_data.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := FileNameFromContentDisposition(tt.header); got != tt.want {
				t.Errorf("FileNameFromContentDisposition(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestNewArtifact(t *testing.T) {
	resp := Response{
		StatusCode: 200,
		Header: http.Header{
			"Content-Disposition": {`attachment; filename="result.xlsx"`},
			"X-Processing-Time":   {"12.5"},
			"X-People-Count":      {"42"},
		},
		Body: []byte("sheet"),
	}

	a, err := newArtifact(resp)
	if err != nil {
		t.Fatalf("newArtifact() error = %v", err)
	}
	if a.Name != "result.xlsx" {
		t.Errorf("Name = %q", a.Name)
	}
	if a.ProcessingTime != 12500*time.Millisecond {
		t.Errorf("ProcessingTime = %v, want 12.5s", a.ProcessingTime)
	}
	if a.PeopleCount != "42" {
		t.Errorf("PeopleCount = %q", a.PeopleCount)
	}
	if a.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("ContentType = %q, want xlsx default", a.ContentType)
	}
	if a.Size() != 5 {
		t.Errorf("Size() = %d, want 5", a.Size())
	}
}

func TestNewArtifact_BodyError(t *testing.T) {
	_, err := newArtifact(Response{StatusCode: 200, BodyErr: errors.New("unexpected EOF")})
	var ae *ArtifactError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *ArtifactError", err)
	}
	if ae.UserMessage() != MessageArtifactFailed {
		t.Errorf("UserMessage() = %q", ae.UserMessage())
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 0.25 ", 250 * time.Millisecond},
		{"-1", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseSeconds(tt.in); got != tt.want {
			t.Errorf("parseSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
