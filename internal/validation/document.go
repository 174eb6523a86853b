// Package validation checks documents before they are uploaded.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// PDFMimeType is the detected type of an acceptable upload.
const PDFMimeType = "application/pdf"

var (
	// ErrNotPDF is returned for files whose content is not a PDF.
	ErrNotPDF = errors.New("not a PDF document")

	// ErrExtension is returned for names the service rejects.
	ErrExtension = errors.New("file name must end in .pdf")
)

// ValidateDocumentName checks a file name the way the service does: it
// only accepts names with a lowercase .pdf extension.
func ValidateDocumentName(name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("file name contains null byte: %q", name)
	}
	if !strings.HasSuffix(name, ".pdf") {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			return fmt.Errorf("%s: %w (extension is case sensitive)", name, ErrExtension)
		}
		return fmt.Errorf("%s: %w", name, ErrExtension)
	}
	return nil
}

// ValidateDocument checks that path names a regular file with a .pdf name
// and PDF content.
func ValidateDocument(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}

	if err := ValidateDocumentName(filepath.Base(path)); err != nil {
		return err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("cannot inspect %s: %w", path, err)
	}
	if !mt.Is(PDFMimeType) {
		return fmt.Errorf("%s: %w (detected %s)", filepath.Base(path), ErrNotPDF, mt.String())
	}
	return nil
}
