// Package transfer implements the single-file transfer controller: a PDF is
// uploaded to the processing service, the generated spreadsheet is held in
// memory, and the user downloads it or resets to upload another file.
package transfer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Phase is the controller's position in the upload/process/download cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"       // Waiting for a file
	PhaseUploading  Phase = "uploading"  // Request body is being sent
	PhaseProcessing Phase = "processing" // Server answered 200, artifact being materialized
	PhaseComplete   Phase = "complete"   // Artifact held, ready for download
)

func (p Phase) String() string { return string(p) }

// validTransitions lists the phases reachable from each phase through the
// normal flow. Reset may move any phase to idle and is not listed here.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseUploading},
	PhaseUploading:  {PhaseProcessing, PhaseIdle},
	PhaseProcessing: {PhaseComplete, PhaseIdle},
	PhaseComplete:   {PhaseIdle},
}

// CanTransition reports whether from -> to is a legal move outside of Reset.
func CanTransition(from, to Phase) bool {
	for _, p := range validTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// State is a point-in-time copy of the controller state.
type State struct {
	Phase           Phase
	AttemptID       string // Empty while idle
	SourceFileName  string
	ProgressPercent int
	BytesSent       int64
	BytesTotal      int64
	Result          *Artifact // Non-nil if and only if Phase == PhaseComplete
}

// HasResult reports whether a downloadable artifact is held.
func (s State) HasResult() bool { return s.Result != nil }

// File is a document selected for upload.
type File struct {
	Name     string
	Size     int64  // -1 when unknown
	Password string // Optional password for encrypted PDFs
	Open     func() (io.ReadCloser, error)
}

// OpenFile describes a file on disk. The file is opened by the transport.
func OpenFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// BytesFile wraps an in-memory document.
func BytesFile(name string, data []byte) *File {
	return &File{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// ReaderFile wraps a stream of known or unknown size (-1). The reader can be
// consumed once.
func ReaderFile(name string, size int64, r io.Reader) *File {
	return &File{
		Name: name,
		Size: size,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// percent converts a byte ratio to a whole percentage in [0,100].
// ok is false when total is not known.
func percent(sent, total int64) (p int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	if sent <= 0 {
		return 0, true
	}
	if sent >= total {
		return 100, true
	}
	// Round half up on a non-negative value
	return int((200*float64(sent) + float64(total)) / (2 * float64(total))), true
}
