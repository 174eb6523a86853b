package diskspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.xlsx")

	t.Run("SmallFile", func(t *testing.T) {
		if err := CheckAvailableSpace(target, 1024, 1.15); err != nil {
			t.Errorf("Expected no error for small file, got: %v", err)
		}
	})

	t.Run("VeryLargeFile", func(t *testing.T) {
		// 100 PiB exceeds any test machine
		err := CheckAvailableSpace(target, 100<<50, 1.15)
		if err == nil {
			t.Skip("file system reports extraordinary free space")
		}
		if !IsInsufficientSpaceError(err) {
			t.Errorf("Expected InsufficientSpaceError, got: %T", err)
		}
	})

	t.Run("MissingDirectoryPasses", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "does", "not", "exist", "out.xlsx")
		if err := CheckAvailableSpace(missing, 100<<50, 1.15); err != nil {
			t.Errorf("unknown free space should not block the write, got %v", err)
		}
	})
}

func TestGetAvailableSpace(t *testing.T) {
	if available := GetAvailableSpace(filepath.Join(t.TempDir(), "out.xlsx")); available <= 0 {
		t.Error("Expected non-zero available space for the temp dir")
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	err := &InsufficientSpaceError{Path: "/tmp/out.xlsx", RequiredBytes: 1000, AvailableBytes: 500}
	if !IsInsufficientSpaceError(err) {
		t.Error("Expected IsInsufficientSpaceError to return true")
	}
	if !IsInsufficientSpaceError(fmt.Errorf("save: %w", err)) {
		t.Error("Expected wrapped error to match")
	}
	if IsInsufficientSpaceError(fmt.Errorf("some other error")) {
		t.Error("Expected false for non-disk-space error")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("Expected false for nil")
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Path:           "/tmp/out.xlsx",
		RequiredBytes:  100 << 20,
		AvailableBytes: 50 << 20,
	}
	msg := err.Error()
	for _, want := range []string{"/tmp/out.xlsx", "100 MiB", "50 MiB"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}
