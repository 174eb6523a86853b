package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	"github.com/lohnkonto/lohnkonto-client/internal/diskspace"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/pathutil"
	"github.com/lohnkonto/lohnkonto-client/internal/util/paths"
	"github.com/lohnkonto/lohnkonto-client/internal/util/sanitize"
)

// Local writes results into a directory.
type Local struct {
	dir       string
	overwrite bool
	logger    *logging.Logger
	exists    paths.ExistsFunc
}

// NewLocal resolves dir and creates it if needed.
func NewLocal(dir string, overwrite bool, logger *logging.Logger) (*Local, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	abs, err := pathutil.ResolveAbsolutePath(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", abs, err)
	}
	return &Local{
		dir:       abs,
		overwrite: overwrite,
		logger:    logger,
		exists:    paths.FileExists,
	}, nil
}

// Dir returns the resolved output directory.
func (l *Local) Dir() string { return l.dir }

// Save writes data under a sanitized name. Unless overwrite is set an
// existing file is kept and the result gets a numeric suffix; the chosen name
// is claimed with an exclusive create so a file appearing concurrently is
// never replaced. The data is written to a temporary name first and renamed
// into place.
func (l *Local) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(l.dir, sanitize.SanitizeFileName(name, constants.DefaultResultFileName))

	if err := diskspace.CheckAvailableSpace(target, int64(len(data)), 1+constants.DiskSpaceBufferPercent); err != nil {
		return "", err
	}

	// Empty placeholder owned by this call, removed if the write fails
	claimed := ""
	if !l.overwrite {
		free, err := l.claim(target)
		if err != nil {
			return "", err
		}
		target, claimed = free, free
	}
	release := func() {
		if claimed != "" {
			os.Remove(claimed)
		}
	}

	tmp, err := os.CreateTemp(l.dir, ".lohnkonto-*.part")
	if err != nil {
		release()
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
		release()
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to flush %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		release()
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		l.logger.Debug().Err(err).Str("path", tmpName).Msg("could not relax result file permissions")
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		release()
		return "", fmt.Errorf("failed to move result to %s: %w", target, err)
	}

	l.logger.Debug().Str("path", target).Int("bytes", len(data)).Msg("result written")
	return target, nil
}

// claim reserves the first free variant of target by creating it
// exclusively. Names that turn out to be taken are skipped.
func (l *Local) claim(target string) (string, error) {
	taken := make(map[string]bool)
	exists := func(p string) bool { return taken[p] || l.exists(p) }

	for {
		free, err := paths.UniquePath(target, exists)
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(free, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			return free, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to create %s: %w", free, err)
		}
		taken[free] = true
	}
}
