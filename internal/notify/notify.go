// Package notify sends desktop notifications when a transfer finishes.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
)

const appTitle = "Lohnkonto"

// Notifier handles desktop notifications.
type Notifier struct {
	logger *logging.Logger
	send   func(title, message string) error

	mu           sync.RWMutex
	enabled      bool
	showSaved    bool
	showFailures bool
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent.
	Enabled bool

	// ShowSaved notifies when the processed spreadsheet has been saved.
	ShowSaved bool

	// ShowFailures notifies when an upload or processing attempt fails.
	ShowFailures bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		ShowSaved:    true,
		ShowFailures: true,
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Notifier{
		logger:       logger,
		send:         beeepNotify,
		enabled:      cfg.Enabled,
		showSaved:    cfg.ShowSaved,
		showFailures: cfg.ShowFailures,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// ResultSaved notifies that the spreadsheet for source was written to location.
func (n *Notifier) ResultSaved(source, location string) {
	n.mu.RLock()
	show := n.enabled && n.showSaved
	n.mu.RUnlock()
	if !show {
		return
	}

	message := fmt.Sprintf("%s processed.\nSaved to %s", truncate(source, 40), shortenPath(location))
	if err := n.send(appTitle, message); err != nil {
		n.logger.Warn().Err(err).Str("file", source).Msg("failed to send completion notification")
	}
}

// TransferFailed notifies that processing source failed with the given
// user-facing message.
func (n *Notifier) TransferFailed(source, message string) {
	n.mu.RLock()
	show := n.enabled && n.showFailures
	n.mu.RUnlock()
	if !show {
		return
	}

	title := appTitle + ": processing failed"
	body := fmt.Sprintf("%s\n%s", truncate(source, 40), truncate(message, 100))
	if err := n.send(title, body); err != nil {
		n.logger.Warn().Err(err).Str("file", source).Msg("failed to send failure notification")
	}
}

// Handle lets the notifier follow the event bus like a progress renderer.
func (n *Notifier) Handle(ev *events.TransferEvent) {
	switch ev.Type() {
	case events.EventTransferDownloaded:
		n.ResultSaved(ev.SourceFileName, ev.Location)
	case events.EventTransferFailed:
		n.TransferFailed(ev.SourceFileName, ev.Message)
	}
}

func (n *Notifier) Writer() io.Writer { return io.Discard }
func (n *Notifier) Close()            {}

// beeepNotify is cross-platform:
// - Windows: toast notifications
// - macOS: NSUserNotificationCenter
// - Linux: D-Bus notifications
func beeepNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	_, file := filepath.Split(path)
	short := filepath.Join("...", filepath.Base(filepath.Dir(path)), file)

	if vol := filepath.VolumeName(path); vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}
	return short
}

// ParseNotifyConfig reads notification settings from key/value pairs.
// Keys: enabled, show_saved, show_failures
func ParseNotifyConfig(settings map[string]string) *Config {
	cfg := DefaultConfig()

	if v, ok := settings["enabled"]; ok {
		cfg.Enabled = strings.EqualFold(v, "true")
	}
	if v, ok := settings["show_saved"]; ok {
		cfg.ShowSaved = strings.EqualFold(v, "true")
	}
	if v, ok := settings["show_failures"]; ok {
		cfg.ShowFailures = strings.EqualFold(v, "true")
	}
	return cfg
}
