package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
)

// ListDirectory walks root and returns every file whose extension is in exts
// (constants.AllowedExtensions when nil), in lexical order. Hidden entries are
// skipped when skipHidden is set; unreadable entries are counted and skipped.
func ListDirectory(ctx context.Context, root string, exts map[string]struct{}, skipHidden bool, logger *slog.Logger) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		paths []string
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("walk entry failed", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !allowed(path, exts) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	logger.Debug("directory listed", "root", root, "scanned", stats.Scanned, "matched", stats.Matched)
	return paths, stats, nil
}
