package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

// CLIProgress draws the upload with a single progressbar line and reports
// the remaining milestones as text.
type CLIProgress struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a progress reporter writing to out.
func NewCLIProgress(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out}
}

func (p *CLIProgress) Handle(ev *events.TransferEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type() {
	case events.EventTransferStateChanged:
		switch ev.Phase {
		case "uploading":
			p.start(ev)
		case "processing":
			p.finish()
			fmt.Fprintf(p.out, "Processing %s...\n", ev.SourceFileName)
		case "idle":
			p.clear()
		}
	case events.EventTransferProgress:
		if p.bar == nil {
			return
		}
		if ev.BytesTotal > 0 {
			_ = p.bar.Set64(ev.BytesSent)
		} else {
			_ = p.bar.Set(ev.ProgressPercent)
		}
	case events.EventTransferCompleted:
		fmt.Fprintf(p.out, "Done: %s (%s)\n", ev.ResultName, formatBytes(ev.ResultSize))
	case events.EventTransferFailed:
		p.clear()
		fmt.Fprintf(p.out, "Error: %s\n", ev.Message)
	case events.EventTransferDownloaded:
		fmt.Fprintf(p.out, "Saved to %s\n", ev.Location)
	}
}

func (p *CLIProgress) start(ev *events.TransferEvent) {
	p.clear()
	total := ev.BytesTotal
	showBytes := total > 0
	if !showBytes {
		total = 100
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("Uploading "+truncatePath(ev.SourceFileName, 2)),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(showBytes),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(constants.ProgressRefreshRate),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *CLIProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

func (p *CLIProgress) clear() {
	if p.bar != nil {
		_ = p.bar.Exit()
		p.bar = nil
	}
}

func (p *CLIProgress) Writer() io.Writer { return p.out }

func (p *CLIProgress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}
