package progress

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

// TransferUI draws the upload as an mpb bar and processing as a spinner.
type TransferUI struct {
	progress *mpb.Progress

	mu          sync.Mutex
	upload      *mpb.Bar
	spinner     *mpb.Bar
	percentMode bool // Total unknown, the bar counts percent instead of bytes
	lastUpdate  time.Time
	started     time.Time
}

// NewTransferUI renders to out, which should be a terminal.
func NewTransferUI(out *os.File) *TransferUI {
	enableANSIOnWindows(out)
	return &TransferUI{
		progress: mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(80),
		),
	}
}

func (u *TransferUI) Handle(ev *events.TransferEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch ev.Type() {
	case events.EventTransferStateChanged:
		switch ev.Phase {
		case "uploading":
			u.startUpload(ev)
		case "processing":
			u.finishUpload()
			u.startSpinner(ev)
		case "complete":
			u.stopSpinner(true)
		case "idle":
			// Reset or failure, the failure line is printed on its own event
			u.abortAll()
		}
	case events.EventTransferProgress:
		u.updateUpload(ev)
	case events.EventTransferCompleted:
		fmt.Fprintf(u.progress, "✓ %s → %s (%s, %s)\n",
			truncatePath(ev.SourceFileName, 2), ev.ResultName,
			formatBytes(ev.ResultSize), time.Since(u.started).Round(100*time.Millisecond))
	case events.EventTransferFailed:
		u.abortAll()
		fmt.Fprintf(u.progress, "✗ %s: %s\n", truncatePath(ev.SourceFileName, 2), ev.Message)
	case events.EventTransferDownloaded:
		fmt.Fprintf(u.progress, "Saved %s to %s\n", ev.ResultName, ev.Location)
	}
}

func (u *TransferUI) startUpload(ev *events.TransferEvent) {
	u.abortAll()
	u.started = time.Now()
	u.lastUpdate = u.started

	total := ev.BytesTotal
	u.percentMode = total <= 0
	if u.percentMode {
		total = 100
	}

	counters := decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace)
	if u.percentMode {
		counters = decor.Name("")
	}

	name := truncatePath(ev.SourceFileName, 2)
	u.upload = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name("Uploading "+name, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			counters,
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
}

func (u *TransferUI) updateUpload(ev *events.TransferEvent) {
	if u.upload == nil {
		return
	}
	now := time.Now()
	current := ev.BytesSent
	if u.percentMode {
		current = int64(ev.ProgressPercent)
	}
	u.upload.EwmaSetCurrent(current, now.Sub(u.lastUpdate))
	u.lastUpdate = now
}

func (u *TransferUI) finishUpload() {
	if u.upload == nil {
		return
	}
	// Negative total means "use the current value"; marks the bar done
	u.upload.SetTotal(-1, true)
	u.upload = nil
}

func (u *TransferUI) startSpinner(ev *events.TransferEvent) {
	u.spinner = u.progress.New(0,
		mpb.SpinnerStyle(),
		mpb.PrependDecorators(
			decor.Name("Processing "+truncatePath(ev.SourceFileName, 2), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
}

func (u *TransferUI) stopSpinner(done bool) {
	if u.spinner == nil {
		return
	}
	if done {
		u.spinner.SetTotal(-1, true)
	} else {
		u.spinner.Abort(true)
	}
	u.spinner = nil
}

func (u *TransferUI) abortAll() {
	if u.upload != nil {
		u.upload.Abort(true)
		u.upload = nil
	}
	u.stopSpinner(false)
}

// Writer prints above the bars.
func (u *TransferUI) Writer() io.Writer {
	return u.progress
}

// Close aborts unfinished bars and waits for the final redraw.
func (u *TransferUI) Close() {
	u.mu.Lock()
	u.abortAll()
	u.mu.Unlock()
	u.progress.Wait()
}

// enableANSIOnWindows turns on virtual terminal processing so the bars render
// in cmd.exe and PowerShell.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
