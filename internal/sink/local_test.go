package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
)

func TestLocal_Save(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	loc, err := l.Save(context.Background(), "out.xlsx", "", []byte("first"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(loc) != "out.xlsx" {
		t.Errorf("location = %s", loc)
	}

	loc2, err := l.Save(context.Background(), "out.xlsx", "", []byte("second"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(loc2) != "out_1.xlsx" {
		t.Errorf("collision location = %s, want out_1.xlsx", loc2)
	}

	first, _ := os.ReadFile(loc)
	second, _ := os.ReadFile(loc2)
	if string(first) != "first" || string(second) != "second" {
		t.Errorf("contents = %q, %q", first, second)
	}

	entries, _ := os.ReadDir(l.Dir())
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestLocal_KeepsFileCreatedAfterNameCheck(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	// The name check sees a free directory; another writer gets there first
	l.exists = func(string) bool { return false }
	existing := filepath.Join(l.Dir(), "out.xlsx")
	if err := os.WriteFile(existing, []byte("theirs"), 0o644); err != nil {
		t.Fatal(err)
	}

	loc, err := l.Save(context.Background(), "out.xlsx", "", []byte("ours"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(loc) != "out_1.xlsx" {
		t.Errorf("location = %s, want out_1.xlsx", loc)
	}

	theirs, _ := os.ReadFile(existing)
	ours, _ := os.ReadFile(loc)
	if string(theirs) != "theirs" || string(ours) != "ours" {
		t.Errorf("contents = %q, %q", theirs, ours)
	}
}

func TestLocal_Overwrite(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, true, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, content := range []string{"old", "new"} {
		if _, err := l.Save(context.Background(), "out.xlsx", "", []byte(content)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	got, err := os.ReadFile(filepath.Join(l.Dir(), "out.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("content = %q, want new", got)
	}
	if _, err := os.Stat(filepath.Join(l.Dir(), "out_1.xlsx")); err == nil {
		t.Error("overwrite mode must not create suffixed copies")
	}
}

func TestLocal_SanitizesName(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"../../escape.xlsx", "escape.xlsx"},
		{"", "processed_data.xlsx"},
		{"a:b.xlsx", "a_b.xlsx"},
	}
	for _, tt := range tests {
		loc, err := l.Save(context.Background(), tt.name, "", []byte("x"))
		if err != nil {
			t.Fatalf("Save(%q): %v", tt.name, err)
		}
		if filepath.Dir(loc) != l.Dir() {
			t.Errorf("Save(%q) escaped the output directory: %s", tt.name, loc)
		}
		if filepath.Base(loc) != tt.want {
			t.Errorf("Save(%q) = %s, want %s", tt.name, filepath.Base(loc), tt.want)
		}
	}
}

func TestLocal_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results", "2024")
	l, err := NewLocal(dir, false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if info, err := os.Stat(l.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("output directory not created: %v", err)
	}
}

func TestLocal_CancelledContext(t *testing.T) {
	l, err := NewLocal(t.TempDir(), false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Save(ctx, "out.xlsx", "", []byte("x")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestDownloadFunc(t *testing.T) {
	l, err := NewLocal(t.TempDir(), false, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	download := DownloadFunc(l)

	loc, err := download(context.Background(), &transfer.Artifact{Name: "out.xlsx", Data: []byte("sheet")})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := os.ReadFile(loc)
	if string(got) != "sheet" {
		t.Errorf("content = %q", got)
	}
}
