package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel selects the icon shown next to a status message.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusProgress // Spinner instead of an icon
)

func (l StatusLevel) icon() fyne.Resource {
	switch l {
	case StatusSuccess:
		return theme.ConfirmIcon()
	case StatusWarning:
		return theme.WarningIcon()
	case StatusError:
		return theme.ErrorIcon()
	default:
		return theme.InfoIcon()
	}
}

// StatusBar shows one line of status at the bottom of the window. Setters
// may be called from any goroutine.
type StatusBar struct {
	widget.BaseWidget

	mu      sync.RWMutex
	level   StatusLevel
	message string

	icon    *widget.Icon
	label   *widget.Label
	spinner *widget.Activity
}

// NewStatusBar creates a status bar showing "Ready".
func NewStatusBar() *StatusBar {
	sb := &StatusBar{level: StatusInfo, message: "Ready"}
	sb.label = widget.NewLabel(sb.message)
	sb.label.TextStyle = fyne.TextStyle{Italic: true}
	sb.label.Truncation = fyne.TextTruncateEllipsis
	sb.icon = widget.NewIcon(theme.InfoIcon())
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus updates the message and level.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.mu.Unlock()

	fyne.Do(func() { sb.apply(message, level) })
}

func (sb *StatusBar) apply(message string, level StatusLevel) {
	sb.label.SetText(message)
	if level == StatusProgress {
		sb.icon.Hide()
		sb.spinner.Show()
		sb.spinner.Start()
		return
	}
	sb.spinner.Stop()
	sb.spinner.Hide()
	sb.icon.SetResource(level.icon())
	sb.icon.Show()
}

func (sb *StatusBar) SetInfo(message string)     { sb.SetStatus(message, StatusInfo) }
func (sb *StatusBar) SetSuccess(message string)  { sb.SetStatus(message, StatusSuccess) }
func (sb *StatusBar) SetWarning(message string)  { sb.SetStatus(message, StatusWarning) }
func (sb *StatusBar) SetError(message string)    { sb.SetStatus(message, StatusError) }
func (sb *StatusBar) SetProgress(message string) { sb.SetStatus(message, StatusProgress) }

// Message returns the current status message.
func (sb *StatusBar) Message() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.message
}

// Level returns the current status level.
func (sb *StatusBar) Level() StatusLevel {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.level
}

// CreateRenderer implements fyne.Widget.
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, container.NewStack(sb.icon, sb.spinner), nil, sb.label))
}
