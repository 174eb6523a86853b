package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lohnkonto/lohnkonto-client/internal/events"
)

func TestLogger_SetOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cli", nil)
	l.SetOutput(&buf)

	l.Infof("uploading %s", "payroll.pdf")

	if !strings.Contains(buf.String(), "uploading payroll.pdf") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
	if l.Output() != &buf {
		t.Error("Output() should return the writer passed to SetOutput")
	}
}

func TestLogger_WithAttempt(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cli", nil)
	l.SetOutput(&buf)

	l.WithAttempt("abc-123").Info().Msg("started")

	if !strings.Contains(buf.String(), "abc-123") {
		t.Errorf("expected attempt id in output, got %q", buf.String())
	}
}

func TestLogger_GUIModePublishesWarnings(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventLog)

	l := NewLogger("gui", bus)
	l.SetOutput(&bytes.Buffer{})

	l.Infof("not forwarded")
	l.Warnf("server slow")

	select {
	case ev := <-ch:
		logEv, ok := ev.(*events.LogEvent)
		if !ok {
			t.Fatal("expected LogEvent")
		}
		if logEv.Level != events.WarnLevel || logEv.Message != "server slow" {
			t.Errorf("got level %s message %q", logEv.Level, logEv.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for forwarded warning")
	}

	select {
	case ev := <-ch:
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLogger_EnableFileLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")

	l := NewLogger("cli", nil)
	l.SetOutput(&bytes.Buffer{})

	closeFn, err := l.EnableFileLogging(path)
	if err != nil {
		t.Fatalf("EnableFileLogging() error = %v", err)
	}
	l.Infof("written to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"message":"written to file"`) {
		t.Errorf("expected JSON line in log file, got %q", data)
	}
}

func TestLogger_EnableFileLoggingEmptyPath(t *testing.T) {
	l := NewNopLogger()
	closeFn, err := l.EnableFileLogging("")
	if err != nil {
		t.Fatalf("EnableFileLogging(\"\") error = %v", err)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error = %v", err)
	}
}
