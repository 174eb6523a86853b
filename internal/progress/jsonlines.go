package progress

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

// JSONEvent is the line format written by JSONLines.
type JSONEvent struct {
	Time          time.Time `json:"time"`
	Type          string    `json:"type"`
	Attempt       string    `json:"attempt,omitempty"`
	Phase         string    `json:"phase"`
	PreviousPhase string    `json:"previous_phase,omitempty"`
	File          string    `json:"file,omitempty"`
	Percent       int       `json:"percent"`
	BytesSent     int64     `json:"bytes_sent,omitempty"`
	BytesTotal    int64     `json:"bytes_total,omitempty"`
	Result        string    `json:"result,omitempty"`
	ResultSize    int64     `json:"result_size,omitempty"`
	Location      string    `json:"location,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// JSONLines writes each transfer event as a single JSON object per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	out io.Writer
}

func NewJSONLines(out io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(out), out: out}
}

func (j *JSONLines) Handle(ev *events.TransferEvent) {
	line := JSONEvent{
		Time:          ev.Timestamp(),
		Type:          string(ev.Type()),
		Attempt:       ev.AttemptID,
		Phase:         ev.Phase,
		PreviousPhase: ev.PreviousPhase,
		File:          ev.SourceFileName,
		Percent:       ev.ProgressPercent,
		BytesSent:     ev.BytesSent,
		BytesTotal:    ev.BytesTotal,
		Result:        ev.ResultName,
		ResultSize:    ev.ResultSize,
		Location:      ev.Location,
		Message:       ev.Message,
	}
	if ev.Error != nil {
		line.Error = ev.Error.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(line)
}

// Writer discards free text so stdout stays machine readable.
func (j *JSONLines) Writer() io.Writer { return io.Discard }
func (j *JSONLines) Close()            {}
