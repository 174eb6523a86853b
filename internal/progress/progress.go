// Package progress renders transfer events for the command line: multi-line
// bars on a terminal, a single progressbar or plain lines elsewhere, and JSON
// lines for scripts.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

// Style selects a renderer.
type Style string

const (
	StyleAuto   Style = "auto"   // Bars on a terminal, plain lines otherwise
	StyleBars   Style = "bars"   // mpb upload bar plus processing spinner
	StyleSimple Style = "simple" // Single progressbar line
	StylePlain  Style = "plain"  // One line per milestone
	StyleJSON   Style = "json"   // One JSON object per event
	StyleNone   Style = "none"
)

// ParseStyle validates a --progress value.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleAuto, nil
	case StyleAuto, StyleBars, StyleSimple, StylePlain, StyleJSON, StyleNone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown progress style %q (auto, bars, simple, plain, json, none)", s)
	}
}

// Renderer turns transfer events into output.
type Renderer interface {
	// Handle renders one event. Calls are serialized by Follow.
	Handle(ev *events.TransferEvent)

	// Writer returns an io.Writer that prints without corrupting the bars.
	Writer() io.Writer

	// Close flushes pending output and stops any animation.
	Close()
}

// New builds the renderer for style. Auto picks bars when stderr is a
// terminal. JSON goes to stdout, everything else to stderr.
func New(style Style) Renderer {
	if style == StyleAuto {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			style = StyleBars
		} else {
			style = StylePlain
		}
	}
	switch style {
	case StyleBars:
		return NewTransferUI(os.Stderr)
	case StyleSimple:
		return NewCLIProgress(os.Stderr)
	case StyleJSON:
		return NewJSONLines(os.Stdout)
	case StyleNone:
		return NoOp{}
	default:
		return NewPlain(os.Stderr)
	}
}

// Follow feeds transfer events published on bus to r until stop is called.
// stop delivers events that were already queued before returning.
func Follow(bus *events.EventBus, r Renderer) (stop func()) {
	ch := bus.SubscribeAll()
	done := make(chan struct{})
	finished := make(chan struct{})

	handle := func(e events.Event) {
		if ev, ok := e.(*events.TransferEvent); ok {
			r.Handle(ev)
		}
	}

	go func() {
		defer close(finished)
		for {
			select {
			case e, ok := <-ch:
				if !ok {
					return
				}
				handle(e)
			case <-done:
				for {
					select {
					case e, ok := <-ch:
						if !ok {
							return
						}
						handle(e)
					default:
						return
					}
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
			bus.UnsubscribeAll(ch)
		})
	}
}

// NoOp discards all events.
type NoOp struct{}

func (NoOp) Handle(*events.TransferEvent) {}
func (NoOp) Writer() io.Writer            { return io.Discard }
func (NoOp) Close()                       {}

// formatBytes prints a size, or "unknown size" for negative values.
func formatBytes(n int64) string {
	if n < 0 {
		return "unknown size"
	}
	return humanize.Bytes(uint64(n))
}

// truncatePath keeps the last maxComponents elements of a path.
// Example: truncatePath("/a/b/c/d/file.pdf", 3) → "…/c/d/file.pdf"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
