package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/dustin/go-humanize"

	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

// TransferView shows one of three panels depending on the transfer phase:
// a drop zone while idle, progress while uploading or processing, and the
// result with download actions once complete.
type TransferView struct {
	// Actions wired by the owner
	OnSelect   func()
	OnDownload func()
	OnReset    func()

	password *widget.Entry

	idle     *fyne.Container
	busy     *fyne.Container
	complete *fyne.Container

	fileLabel    *widget.Label
	phaseLabel   *widget.Label
	percentLabel *widget.Label
	captionLabel *widget.Label
	uploadBar    *widget.ProgressBar
	processBar   *widget.ProgressBarInfinite

	resultLabel *widget.Label
	detailLabel *widget.Label
	downloadBtn *widget.Button
	resetBtn    *widget.Button

	content fyne.CanvasObject
}

// NewTransferView builds the view in its idle state.
func NewTransferView() *TransferView {
	v := &TransferView{}
	v.buildIdle()
	v.buildBusy()
	v.buildComplete()
	v.content = container.NewStack(v.idle, v.busy, v.complete)
	v.Render(transfer.State{Phase: transfer.PhaseIdle})
	return v
}

// Content returns the root object to place in a window.
func (v *TransferView) Content() fyne.CanvasObject {
	return v.content
}

// Password returns the optional PDF password typed by the user.
func (v *TransferView) Password() string {
	return v.password.Text
}

// SetPassword replaces the password field contents.
func (v *TransferView) SetPassword(pw string) {
	v.password.SetText(pw)
}

func (v *TransferView) buildIdle() {
	icon := widget.NewIcon(theme.UploadIcon())
	iconBox := container.NewGridWrap(fyne.NewSize(64, 64), icon)

	title := widget.NewLabelWithStyle("Click to upload or drag and drop", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	hint := widget.NewLabelWithStyle("PDF files only", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	selectBtn := NewPrimaryButtonWithIcon("Select File", theme.FolderOpenIcon(), func() {
		if v.OnSelect != nil {
			v.OnSelect()
		}
	})

	v.password = widget.NewPasswordEntry()
	v.password.SetPlaceHolder("PDF password (optional)")

	border := canvas.NewRectangle(nil)
	border.StrokeColor = theme.Color(theme.ColorNameInputBorder)
	border.StrokeWidth = 2
	border.CornerRadius = 8

	zone := container.NewVBox(
		VerticalSpacer(16),
		container.NewCenter(iconBox),
		title,
		hint,
		VerticalSpacer(8),
		container.NewCenter(selectBtn),
		VerticalSpacer(16),
	)

	v.idle = container.NewVBox(
		container.NewStack(border, container.NewPadded(zone)),
		VerticalSpacer(8),
		v.password,
	)
}

func (v *TransferView) buildBusy() {
	v.fileLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.phaseLabel = widget.NewLabel("")
	v.captionLabel = widget.NewLabel("")
	v.percentLabel = widget.NewLabelWithStyle("", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true})

	v.uploadBar = widget.NewProgressBar()
	v.uploadBar.TextFormatter = func() string { return "" }
	v.processBar = widget.NewProgressBarInfinite()

	header := container.NewBorder(nil, nil,
		widget.NewIcon(theme.FileIcon()), nil,
		container.NewVBox(v.fileLabel, v.phaseLabel),
	)

	v.busy = container.NewVBox(
		header,
		VerticalSpacer(16),
		container.NewBorder(nil, nil, v.captionLabel, v.percentLabel),
		container.NewStack(v.uploadBar, v.processBar),
	)
}

func (v *TransferView) buildComplete() {
	banner := container.NewBorder(nil, nil,
		widget.NewIcon(theme.ConfirmIcon()), nil,
		container.NewVBox(
			widget.NewLabelWithStyle("Processing Complete!", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewLabel("Your file is ready to download"),
		),
	)

	v.resultLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.detailLabel = widget.NewLabel("")

	v.downloadBtn = NewPrimaryButtonWithIcon("Download File", theme.DownloadIcon(), func() {
		if v.OnDownload != nil {
			v.OnDownload()
		}
	})
	v.resetBtn = widget.NewButtonWithIcon("Upload Another", theme.ContentAddIcon(), func() {
		if v.OnReset != nil {
			v.OnReset()
		}
	})

	result := container.NewBorder(nil, nil,
		widget.NewIcon(theme.FileIcon()), nil,
		container.NewVBox(v.resultLabel, v.detailLabel),
	)

	v.complete = container.NewVBox(
		banner,
		VerticalSpacer(16),
		widget.NewCard("", "", container.NewVBox(
			result,
			container.NewBorder(nil, nil, nil, v.resetBtn, v.downloadBtn),
		)),
	)
}

// Render updates the view to match st. It must run on the UI goroutine.
func (v *TransferView) Render(st transfer.State) {
	switch st.Phase {
	case transfer.PhaseUploading, transfer.PhaseProcessing:
		v.renderBusy(st)
		v.idle.Hide()
		v.complete.Hide()
		v.busy.Show()
	case transfer.PhaseComplete:
		v.renderComplete(st)
		v.idle.Hide()
		v.busy.Hide()
		v.complete.Show()
	default:
		v.processBar.Stop()
		v.busy.Hide()
		v.complete.Hide()
		v.idle.Show()
	}
}

func (v *TransferView) renderBusy(st transfer.State) {
	v.fileLabel.SetText(st.SourceFileName)
	v.phaseLabel.SetText(phaseTitle(st.Phase))
	v.captionLabel.SetText(progressCaption(st.Phase))
	v.percentLabel.SetText(progressText(st))

	if st.Phase == transfer.PhaseProcessing {
		v.uploadBar.Hide()
		v.processBar.Show()
		v.processBar.Start()
		return
	}
	v.processBar.Stop()
	v.processBar.Hide()
	v.uploadBar.Show()
	v.uploadBar.SetValue(float64(st.ProgressPercent) / 100)
}

func (v *TransferView) renderComplete(st transfer.State) {
	v.processBar.Stop()
	if st.Result == nil {
		v.resultLabel.SetText("")
		v.detailLabel.SetText("")
		v.downloadBtn.Disable()
		return
	}
	v.resultLabel.SetText(st.Result.Name)
	v.detailLabel.SetText(resultDetail(st.Result))
	v.downloadBtn.Enable()
}

func phaseTitle(p transfer.Phase) string {
	switch p {
	case transfer.PhaseUploading:
		return "Uploading..."
	case transfer.PhaseProcessing:
		return "Processing..."
	case transfer.PhaseComplete:
		return "Processing Complete!"
	default:
		return "Ready"
	}
}

func progressCaption(p transfer.Phase) string {
	if p == transfer.PhaseProcessing {
		return "Processing Progress"
	}
	return "Upload Progress"
}

// progressText is the percentage shown next to the bar. Uploads of unknown
// size show the byte count instead.
func progressText(st transfer.State) string {
	if st.Phase == transfer.PhaseProcessing {
		return ""
	}
	if st.BytesTotal <= 0 && st.BytesSent > 0 {
		return humanize.Bytes(uint64(st.BytesSent))
	}
	return fmt.Sprintf("%d%%", st.ProgressPercent)
}

func resultDetail(a *transfer.Artifact) string {
	detail := "Excel Spreadsheet, " + humanize.Bytes(uint64(a.Size()))
	if a.PeopleCount != "" {
		detail += ", " + a.PeopleCount + " people"
	}
	if a.ProcessingTime > 0 {
		detail += fmt.Sprintf(", processed in %.1fs", a.ProcessingTime.Seconds())
	}
	return detail
}
