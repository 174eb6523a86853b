// Package paths picks destination paths for saved results.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxSuffix bounds the search for a free name.
const maxSuffix = 9999

// ExistsFunc reports whether a path is already taken.
type ExistsFunc func(path string) bool

// FileExists is the ExistsFunc for the local file system.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// UniquePath returns path if it is free, otherwise the first free variant
// with a numeric suffix inserted before the extension:
//
//   - out.xlsx
//   - out_1.xlsx
//   - out_2.xlsx
func UniquePath(path string, exists ExistsFunc) (string, error) {
	if !exists(path) {
		return path, nil
	}

	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	for i := 1; i <= maxSuffix; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d attempts", path, maxSuffix)
}
