package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	run_id UUID PRIMARY KEY,
	document TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	source_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	route TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL,
	duration_ns BIGINT NOT NULL,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_started ON extraction_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_hash ON extraction_runs(source_hash) WHERE source_hash <> '';
`

// PostgresStore keeps results in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool and applies the schema.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, dbError("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "lcablesync"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx, cancel := context.WithTimeout(ctx, max(cfg.DialTimeout, time.Second))
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, dbError("connect", err)
	}
	if _, err := pool.Exec(dialCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, dbError("apply schema", err)
	}

	logger.Info("successfully connected to database")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, res *pipeline.Result) error {
	payload, err := encodeResult(res)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO extraction_runs (run_id, document, source_path, source_hash, status, route, started_at, duration_ns, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			document = EXCLUDED.document,
			source_path = EXCLUDED.source_path,
			source_hash = EXCLUDED.source_hash,
			status = EXCLUDED.status,
			route = EXCLUDED.route,
			started_at = EXCLUDED.started_at,
			duration_ns = EXCLUDED.duration_ns,
			payload = EXCLUDED.payload`,
		res.RunID, res.Document, res.SourcePath, res.SourceHash,
		string(res.Status), string(res.Route), res.StartedAt, int64(res.Duration), payload,
	)
	if err != nil {
		s.logger.Error("failed to save result", "run_id", res.RunID, "error", err)
		return dbError("insert result", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, runID uuid.UUID) (*pipeline.Result, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM extraction_runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, dbError("select result", err)
	}
	return decodeResult(payload)
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]*pipeline.Result, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SourceHash != "" {
		args = append(args, f.SourceHash)
		where = append(where, fmt.Sprintf("source_hash = $%d", len(args)))
	}
	q := `SELECT payload FROM extraction_runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.limit())
	q += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, dbError("list results", err)
	}
	defer rows.Close()

	var out []*pipeline.Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, dbError("scan result", err)
		}
		res, err := decodeResult(payload)
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

// HealthCheck pings the pool.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	s.logger.Debug("pinging database")
	if err := s.pool.Ping(ctx); err != nil {
		return dbError("ping", err)
	}
	s.logger.Debug("database ping successful")
	return nil
}

func (s *PostgresStore) Close() error {
	s.logger.Info("closing database connections")
	s.pool.Close()
	return nil
}
