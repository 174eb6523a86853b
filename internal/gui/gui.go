// Package gui provides the desktop window for lohnkonto.
package gui

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/lohnkonto/lohnkonto-client/internal/api"
	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/events"
	inthttp "github.com/lohnkonto/lohnkonto-client/internal/http"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/notify"
	"github.com/lohnkonto/lohnkonto-client/internal/progress"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
	"github.com/lohnkonto/lohnkonto-client/internal/validation"
	"github.com/lohnkonto/lohnkonto-client/internal/version"
)

var (
	// guiLogger is the package-level logger for GUI mode
	guiLogger *logging.Logger

	errSaveCancelled = errors.New("save cancelled")
)

// LaunchGUI opens the main window and blocks until it is closed.
func LaunchGUI(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}

	bus := events.NewEventBus(0)
	defer bus.Close()

	guiLogger = logging.NewLogger("gui", bus)

	// LOHNKONTO_DEBUG=1 shows info and debug output on the console
	if os.Getenv("LOHNKONTO_DEBUG") != "" || cfg.DetailedLogging {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		logging.SetGlobalLevel(zerolog.WarnLevel)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		if err := config.EnsureLogDirectory(); err == nil {
			logPath = filepath.Join(config.LogDirectory(), "lohnkonto-gui.log")
		}
	}
	if logPath != "" {
		closeLog, err := guiLogger.EnableFileLogging(logPath)
		if err != nil {
			guiLogger.Warn().Err(err).Str("path", logPath).Msg("file logging disabled")
		} else {
			defer closeLog()
		}
	}

	httpClient, err := inthttp.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	myApp := app.NewWithID("de.lohnkonto.client")
	myApp.Settings().SetTheme(&lohnkontoTheme{})

	mainWindow := myApp.NewWindow("Lohnkonten Data Extraction")
	mainWindow.SetMaster()

	ui := NewUI(cfg, httpClient, bus, mainWindow)
	ui.Start()

	mainWindow.SetContent(ui.Build())
	mainWindow.Resize(fyne.NewSize(640, 520))
	mainWindow.CenterOnScreen()
	mainWindow.SetOnDropped(ui.handleDrop)
	mainWindow.SetOnClosed(ui.Stop)

	guiLogger.Info().Str("api", cfg.APIBaseURL).Str("version", version.Version).Msg("GUI started")
	mainWindow.ShowAndRun()
	return nil
}

// UI owns the controller and the widgets of the main window.
type UI struct {
	cfg    *config.Config
	window fyne.Window
	bus    *events.EventBus
	ctrl   *transfer.Controller
	client *api.Client

	view      *TransferView
	statusBar *StatusBar

	stopNotify func()
	lastPath   string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewUI wires a controller to the window. Results are saved through a
// save dialog.
func NewUI(cfg *config.Config, httpClient *nethttp.Client, bus *events.EventBus, window fyne.Window) *UI {
	if guiLogger == nil {
		guiLogger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	ui := &UI{
		cfg:        cfg,
		window:     window,
		bus:        bus,
		client:     api.NewClient(cfg.APIBaseURL, httpClient, guiLogger),
		view:       NewTransferView(),
		statusBar:  NewStatusBar(),
		stopNotify: func() {},
		ctx:        ctx,
		cancel:     cancel,
	}

	ui.ctrl = transfer.NewController(transfer.Options{
		Transport: api.NewTransport(cfg.APIBaseURL, httpClient, guiLogger),
		Download:  ui.saveArtifact,
		Reporter:  transfer.ReporterFunc(ui.reportError),
		EventBus:  bus,
		Logger:    guiLogger,
	})

	ui.view.OnSelect = ui.selectFile
	ui.view.OnDownload = ui.download
	ui.view.OnReset = ui.ctrl.Reset

	return ui
}

// Build creates the window layout.
func (ui *UI) Build() fyne.CanvasObject {
	header := container.NewVBox(
		widget.NewLabelWithStyle("Lohnkonten Data Extraction", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabelWithStyle("Upload a PDF to extract and process employee data", fyne.TextAlignCenter, fyne.TextStyle{}),
		VerticalSpacer(8),
	)

	return container.NewBorder(
		header,
		container.NewVBox(widget.NewSeparator(), ui.statusBar),
		nil, nil,
		container.NewPadded(ui.view.Content()),
	)
}

// Start begins event monitoring and the health poll.
func (ui *UI) Start() {
	if ui.cfg.Notify {
		ui.stopNotify = progress.Follow(ui.bus, notify.NewNotifier(nil, guiLogger))
	}
	go ui.monitorTransfers()
	go ui.monitorLogs()
	go ui.monitorHealth()
}

// Stop aborts any running transfer and stops the monitors.
func (ui *UI) Stop() {
	ui.ctrl.Reset()
	ui.stopNotify()
	ui.cancel()
}

func (ui *UI) monitorTransfers() {
	ch := ui.bus.SubscribeAll()
	defer ui.bus.UnsubscribeAll(ch)

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			ev, ok := event.(*events.TransferEvent)
			if !ok {
				continue
			}
			st := ui.ctrl.State()
			fyne.Do(func() {
				ui.view.Render(st)
			})
			ui.updateStatus(ev)

		case <-ui.ctx.Done():
			return
		}
	}
}

// updateStatus mirrors transfer events in the status bar. StatusBar
// schedules its own UI updates.
func (ui *UI) updateStatus(ev *events.TransferEvent) {
	switch ev.Type() {
	case events.EventTransferStateChanged:
		switch ev.Phase {
		case string(transfer.PhaseUploading):
			ui.statusBar.SetProgress("Uploading " + ev.SourceFileName)
		case string(transfer.PhaseProcessing):
			ui.statusBar.SetProgress("Processing " + ev.SourceFileName)
		case string(transfer.PhaseIdle):
			// A failure already put its message in the bar
			if ev.PreviousPhase == string(transfer.PhaseComplete) {
				ui.statusBar.SetInfo("Ready")
			}
		}
	case events.EventTransferCompleted:
		ui.statusBar.SetSuccess("Processed " + ev.SourceFileName)
	case events.EventTransferDownloaded:
		ui.statusBar.SetSuccess("Saved to " + ev.Location)
	case events.EventTransferFailed:
		ui.statusBar.SetError(ev.Message)
	}
}

func (ui *UI) monitorLogs() {
	ch := ui.bus.Subscribe(events.EventLog)
	defer ui.bus.Unsubscribe(events.EventLog, ch)

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			logEvent, ok := event.(*events.LogEvent)
			if !ok {
				continue
			}
			// Errors arrive as transfer failures; only warnings are shown here
			if logEvent.Level == events.WarnLevel && ui.ctrl.State().Phase == transfer.PhaseIdle {
				ui.statusBar.SetWarning(logEvent.Message)
			}

		case <-ui.ctx.Done():
			return
		}
	}
}

// monitorHealth polls the service so the status bar shows whether uploads
// can succeed before the user picks a file.
func (ui *UI) monitorHealth() {
	ticker := time.NewTicker(constants.HealthCheckInterval)
	defer ticker.Stop()

	for {
		ui.checkHealth()
		select {
		case <-ticker.C:
		case <-ui.ctx.Done():
			return
		}
	}
}

func (ui *UI) checkHealth() {
	if ui.ctrl.State().Phase != transfer.PhaseIdle {
		return
	}
	ctx, cancel := context.WithTimeout(ui.ctx, constants.HealthCheckTimeout)
	defer cancel()

	status, err := ui.client.Health(ctx)
	if ui.ctx.Err() != nil {
		return
	}
	msg, level := healthStatus(ui.client.BaseURL(), status, err)
	if err != nil {
		guiLogger.Debug().Err(err).Msg("health check failed")
	}
	ui.statusBar.SetStatus(msg, level)
}

// healthStatus turns a health check result into a status bar line.
func healthStatus(baseURL string, status *api.HealthStatus, err error) (string, StatusLevel) {
	switch {
	case err != nil:
		return "Service unreachable at " + baseURL, StatusError
	case status == nil || !status.Healthy():
		return "Service at " + baseURL + " is not ready (template missing)", StatusWarning
	default:
		return "Connected to " + baseURL, StatusSuccess
	}
}

func (ui *UI) selectFile() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, ui.window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		_ = reader.Close()
		ui.startFile(path)
	}, ui.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	d.Show()
}

// handleDrop accepts the first dropped file; the rest are ignored.
func (ui *UI) handleDrop(_ fyne.Position, uris []fyne.URI) {
	for _, u := range uris {
		if u.Scheme() != "file" {
			continue
		}
		ui.startFile(u.Path())
		return
	}
}

func (ui *UI) startFile(path string) {
	if ui.ctrl.State().Phase != transfer.PhaseIdle {
		return
	}
	if err := validation.ValidateDocument(path); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	file, err := transfer.OpenFile(path)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	file.Password = ui.view.Password()
	ui.lastPath = path

	go ui.ctrl.AcceptFile(file)
}

func (ui *UI) download() {
	go func() {
		if err := ui.ctrl.Download(ui.ctx); err != nil {
			guiLogger.Debug().Err(err).Msg("download not completed")
		}
	}()
}

// saveArtifact asks for a destination and writes the artifact there. It runs
// on the goroutine that called Download.
func (ui *UI) saveArtifact(ctx context.Context, a *transfer.Artifact) (string, error) {
	type choice struct {
		w   fyne.URIWriteCloser
		err error
	}
	picked := make(chan choice, 1)

	fyne.Do(func() {
		d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
			picked <- choice{w, err}
		}, ui.window)
		d.SetFileName(a.Name)
		d.SetFilter(storage.NewExtensionFileFilter([]string{filepath.Ext(a.Name)}))
		if dir := ui.lastPath; dir != "" {
			if lister, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(dir))); err == nil {
				d.SetLocation(lister)
			}
		}
		d.Show()
	})

	var c choice
	select {
	case c = <-picked:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if c.err != nil {
		return "", c.err
	}
	if c.w == nil {
		return "", errSaveCancelled
	}

	if _, err := c.w.Write(a.Data); err != nil {
		_ = c.w.Close()
		return "", err
	}
	if err := c.w.Close(); err != nil {
		return "", err
	}
	return c.w.URI().Path(), nil
}

// reportError shows failures in a dialog. A PDF that needs a password gets
// a password prompt and is retried.
func (ui *UI) reportError(message string, err error) {
	if errors.Is(err, errSaveCancelled) {
		return
	}

	fyne.Do(func() {
		if transfer.IsPasswordRequired(err) && ui.lastPath != "" {
			ui.askPassword(message)
			return
		}
		dialog.ShowError(errors.New(message), ui.window)
	})
}

func (ui *UI) askPassword(message string) {
	entry := widget.NewPasswordEntry()
	items := []*widget.FormItem{widget.NewFormItem("Password", entry)}

	dialog.ShowForm(message, "Retry", "Cancel", items, func(ok bool) {
		if !ok || entry.Text == "" {
			return
		}
		ui.view.SetPassword(entry.Text)
		ui.startFile(ui.lastPath)
	}, ui.window)
}
