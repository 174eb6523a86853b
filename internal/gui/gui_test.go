package gui

import (
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"github.com/lohnkonto/lohnkonto-client/internal/api"
	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/events"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n"

func TestTransferView_Render(t *testing.T) {
	test.NewTempApp(t)
	v := NewTransferView()

	if !v.idle.Visible() || v.busy.Visible() || v.complete.Visible() {
		t.Fatal("new view should show only the drop zone")
	}

	v.Render(transfer.State{
		Phase:           transfer.PhaseUploading,
		SourceFileName:  "march.pdf",
		ProgressPercent: 40,
		BytesSent:       400,
		BytesTotal:      1000,
	})
	if v.idle.Visible() || !v.busy.Visible() || v.complete.Visible() {
		t.Fatal("uploading should show only the progress panel")
	}
	if got := v.fileLabel.Text; got != "march.pdf" {
		t.Errorf("file label = %q", got)
	}
	if got := v.phaseLabel.Text; got != "Uploading..." {
		t.Errorf("phase label = %q", got)
	}
	if got := v.percentLabel.Text; got != "40%" {
		t.Errorf("percent label = %q", got)
	}
	if got := v.uploadBar.Value; got != 0.4 {
		t.Errorf("upload bar = %v, want 0.4", got)
	}
	if v.processBar.Visible() {
		t.Error("processing spinner visible while uploading")
	}

	v.Render(transfer.State{Phase: transfer.PhaseProcessing, SourceFileName: "march.pdf"})
	if !v.processBar.Visible() || v.uploadBar.Visible() {
		t.Error("processing should swap the upload bar for the spinner")
	}
	if got := v.phaseLabel.Text; got != "Processing..." {
		t.Errorf("phase label = %q", got)
	}

	v.Render(transfer.State{
		Phase:          transfer.PhaseComplete,
		SourceFileName: "march.pdf",
		Result:         &transfer.Artifact{Name: "Lohnkonten_2024.xlsx", Data: make([]byte, 2048), PeopleCount: "12"},
	})
	if v.idle.Visible() || v.busy.Visible() || !v.complete.Visible() {
		t.Fatal("complete should show only the result panel")
	}
	if got := v.resultLabel.Text; got != "Lohnkonten_2024.xlsx" {
		t.Errorf("result label = %q", got)
	}
	if v.downloadBtn.Disabled() {
		t.Error("download button disabled with a result present")
	}

	v.Render(transfer.State{Phase: transfer.PhaseIdle})
	if !v.idle.Visible() || v.busy.Visible() || v.complete.Visible() {
		t.Fatal("idle should show only the drop zone")
	}
}

func TestTransferView_Actions(t *testing.T) {
	test.NewTempApp(t)
	v := NewTransferView()

	var selected, downloaded, reset int
	v.OnSelect = func() { selected++ }
	v.OnDownload = func() { downloaded++ }
	v.OnReset = func() { reset++ }

	v.Render(transfer.State{Phase: transfer.PhaseComplete, Result: &transfer.Artifact{Name: "out.xlsx"}})
	test.Tap(v.downloadBtn)
	test.Tap(v.resetBtn)

	if downloaded != 1 || reset != 1 || selected != 0 {
		t.Errorf("select=%d download=%d reset=%d", selected, downloaded, reset)
	}

	v.SetPassword("geheim")
	if got := v.Password(); got != "geheim" {
		t.Errorf("Password() = %q", got)
	}
}

func TestProgressText(t *testing.T) {
	tests := []struct {
		name string
		st   transfer.State
		want string
	}{
		{"percent", transfer.State{Phase: transfer.PhaseUploading, ProgressPercent: 73, BytesTotal: 100}, "73%"},
		{"start", transfer.State{Phase: transfer.PhaseUploading}, "0%"},
		{"unknown size", transfer.State{Phase: transfer.PhaseUploading, BytesSent: 1500, BytesTotal: -1}, "1.5 kB"},
		{"processing", transfer.State{Phase: transfer.PhaseProcessing, ProgressPercent: 0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressText(tt.st); got != tt.want {
				t.Errorf("progressText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultDetail(t *testing.T) {
	a := &transfer.Artifact{
		Name:           "out.xlsx",
		Data:           make([]byte, 1500),
		PeopleCount:    "4",
		ProcessingTime: 2500 * time.Millisecond,
	}
	want := "Excel Spreadsheet, 1.5 kB, 4 people, processed in 2.5s"
	if got := resultDetail(a); got != want {
		t.Errorf("resultDetail() = %q, want %q", got, want)
	}

	bare := &transfer.Artifact{Name: "out.xlsx", Data: make([]byte, 10)}
	if got := resultDetail(bare); got != "Excel Spreadsheet, 10 B" {
		t.Errorf("resultDetail() = %q", got)
	}
}

func TestHealthStatus(t *testing.T) {
	tests := []struct {
		name   string
		status *api.HealthStatus
		err    error
		want   StatusLevel
	}{
		{"healthy", &api.HealthStatus{Status: "healthy", TemplateExists: true}, nil, StatusSuccess},
		{"template missing", &api.HealthStatus{Status: "healthy"}, nil, StatusWarning},
		{"unreachable", nil, errors.New("connection refused"), StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, level := healthStatus("http://localhost:8000", tt.status, tt.err)
			if level != tt.want {
				t.Errorf("level = %v, want %v", level, tt.want)
			}
			if msg == "" {
				t.Error("empty status message")
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	cfgFile, apiURL := parseArgs([]string{"lohnkonto", "--gui", "-c", "/tmp/cfg.csv", "--api-url", "http://svc:8000"})
	if cfgFile != "/tmp/cfg.csv" {
		t.Errorf("config = %q", cfgFile)
	}
	if apiURL != "http://svc:8000" {
		t.Errorf("api url = %q", apiURL)
	}

	cfgFile, apiURL = parseArgs([]string{"lohnkonto", "--config"})
	if cfgFile != "" || apiURL != "" {
		t.Errorf("dangling flag parsed as %q %q", cfgFile, apiURL)
	}
}

func TestStatusBar(t *testing.T) {
	test.NewTempApp(t)
	sb := NewStatusBar()

	if sb.Message() != "Ready" || sb.Level() != StatusInfo {
		t.Fatalf("initial status = %q/%v", sb.Message(), sb.Level())
	}

	sb.SetError("Upload failed")
	if sb.Message() != "Upload failed" || sb.Level() != StatusError {
		t.Errorf("status = %q/%v", sb.Message(), sb.Level())
	}

	sb.SetProgress("Uploading a.pdf")
	if sb.Level() != StatusProgress {
		t.Errorf("level = %v, want StatusProgress", sb.Level())
	}
}

func TestUI_StartFileProcessesDocument(t *testing.T) {
	test.NewTempApp(t)

	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != constants.ProcessDocumentPath {
			nethttp.NotFound(w, r)
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", constants.ResultContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="Lohnkonten_march.xlsx"`)
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "march.pdf")
	if err := os.WriteFile(path, []byte(samplePDF), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL

	bus := events.NewEventBus(0)
	defer bus.Close()

	w := test.NewWindow(nil)
	defer w.Close()

	ui := NewUI(cfg, srv.Client(), bus, w)
	defer ui.cancel()

	ui.startFile(path)

	deadline := time.Now().Add(5 * time.Second)
	for ui.ctrl.State().Phase != transfer.PhaseComplete {
		if time.Now().After(deadline) {
			t.Fatalf("transfer did not complete, phase %s", ui.ctrl.State().Phase)
		}
		time.Sleep(10 * time.Millisecond)
	}

	st := ui.ctrl.State()
	if st.Result == nil || st.Result.Name != "Lohnkonten_march.xlsx" {
		t.Fatalf("unexpected result %+v", st.Result)
	}
	if string(st.Result.Data) != "xlsx-bytes" {
		t.Errorf("result data = %q", st.Result.Data)
	}
	if ui.lastPath != path {
		t.Errorf("lastPath = %q", ui.lastPath)
	}

	ui.ctrl.Reset()
	if ui.ctrl.State().Phase != transfer.PhaseIdle {
		t.Error("reset did not return to idle")
	}
}

func TestUI_StartFileRejectsNonPDF(t *testing.T) {
	test.NewTempApp(t)

	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	bus := events.NewEventBus(0)
	defer bus.Close()
	w := test.NewWindow(nil)
	defer w.Close()

	cfg := config.Default()
	ui := NewUI(cfg, nethttp.DefaultClient, bus, w)
	defer ui.cancel()

	ui.startFile(path)
	if ui.ctrl.State().Phase != transfer.PhaseIdle {
		t.Errorf("phase = %s, want idle", ui.ctrl.State().Phase)
	}
	if ui.lastPath != "" {
		t.Errorf("lastPath = %q, want empty", ui.lastPath)
	}
}
