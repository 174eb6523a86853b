package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

// plainStep is the percentage granularity of Plain progress lines.
const plainStep = 25

// Plain prints one line per milestone, for logs and pipes.
type Plain struct {
	out io.Writer

	mu   sync.Mutex
	next int // Next percentage worth a line
}

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Handle(ev *events.TransferEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type() {
	case events.EventTransferStateChanged:
		switch ev.Phase {
		case "uploading":
			p.next = plainStep
			fmt.Fprintf(p.out, "Uploading %s (%s)\n", ev.SourceFileName, formatBytes(ev.BytesTotal))
		case "processing":
			fmt.Fprintln(p.out, "Upload finished, processing on server")
		}
	case events.EventTransferProgress:
		if p.next == 0 || ev.ProgressPercent < p.next {
			return
		}
		fmt.Fprintf(p.out, "  %3d%%\n", ev.ProgressPercent)
		for p.next <= ev.ProgressPercent {
			p.next += plainStep
		}
	case events.EventTransferCompleted:
		fmt.Fprintf(p.out, "Processed %s → %s (%s)\n", ev.SourceFileName, ev.ResultName, formatBytes(ev.ResultSize))
	case events.EventTransferFailed:
		fmt.Fprintf(p.out, "Failed %s: %s\n", ev.SourceFileName, ev.Message)
	case events.EventTransferDownloaded:
		fmt.Fprintf(p.out, "Saved to %s\n", ev.Location)
	}
}

func (p *Plain) Writer() io.Writer { return p.out }
func (p *Plain) Close()            {}
