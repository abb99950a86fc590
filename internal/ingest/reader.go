package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

// ReadWithRetry reads path, retrying up to cfg.Attempts times with cfg.Delay
// between tries when the file cannot be opened (typically locked by the
// producer). Exhausting the attempts yields an error matching
// common.ErrUnavailable; a missing file or a directory fails at once with
// common.ErrSourceRead.
func ReadWithRetry(ctx context.Context, path string, cfg ReadConfig, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, common.SourceReadError(path, err)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		data, err := os.ReadFile(abs)
		if err == nil {
			sum := sha256.Sum256(data)
			return Source{
				Path:    abs,
				Data:    data,
				HashHex: hex.EncodeToString(sum[:]),
				Size:    int64(len(data)),
				ReadAt:  time.Now().UTC(),
			}, nil
		}
		if errors.Is(err, fs.ErrNotExist) || isDir(abs) {
			return Source{}, common.SourceReadError(abs, err)
		}
		lastErr = err
		logger.Warn("source read failed, will retry", "path", abs, "attempt", attempt, "of", cfg.Attempts, "error", err)
		if attempt == cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Source{}, common.NewAppError("UNAVAILABLE", fmt.Sprintf("read %q interrupted", abs), errors.Join(common.ErrUnavailable, ctx.Err()))
		case <-time.After(cfg.Delay):
		}
	}
	return Source{}, common.NewAppError("UNAVAILABLE",
		fmt.Sprintf("read %q failed after %d attempts", abs, cfg.Attempts),
		errors.Join(common.ErrUnavailable, lastErr))
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
