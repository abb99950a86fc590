package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	run_id TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	source_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	route TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_started ON extraction_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_hash ON extraction_runs(source_hash) WHERE source_hash != '';
`

// SQLiteStore keeps results in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the
// schema. ":memory:" is accepted for tests.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:lcablesync.db"
	}
	logger.Info("opening sqlite store", "dsn", dsn)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dbError("open sqlite", err)
	}
	// one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, dbError("set pragma", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, dbError("apply schema", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, res *pipeline.Result) error {
	payload, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO extraction_runs (run_id, document, source_path, source_hash, status, route, started_at, duration_ns, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			document = excluded.document,
			source_path = excluded.source_path,
			source_hash = excluded.source_hash,
			status = excluded.status,
			route = excluded.route,
			started_at = excluded.started_at,
			duration_ns = excluded.duration_ns,
			payload = excluded.payload`,
		res.RunID.String(), res.Document, res.SourcePath, res.SourceHash,
		string(res.Status), string(res.Route), res.StartedAt.UnixNano(), int64(res.Duration), string(payload),
	)
	if err != nil {
		s.logger.Error("failed to save result", "run_id", res.RunID, "error", err)
		return dbError("insert result", err)
	}
	s.logger.Debug("result saved", "run_id", res.RunID, "status", res.Status)
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, runID uuid.UUID) (*pipeline.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM extraction_runs WHERE run_id = ?`, runID.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, dbError("select result", err)
	}
	return decodeResult([]byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context, f ListFilter) ([]*pipeline.Result, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.SourceHash != "" {
		where = append(where, "source_hash = ?")
		args = append(args, f.SourceHash)
	}
	q := `SELECT payload FROM extraction_runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, dbError("list results", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*pipeline.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, dbError("scan result", err)
		}
		res, err := decodeResult([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list results", err)
	}
	return out, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	s.logger.Debug("pinging database")
	if err := s.db.PingContext(ctx); err != nil {
		return dbError("ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

func dbError(op string, err error) error {
	return common.NewAppError("DATABASE_ERROR", op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
