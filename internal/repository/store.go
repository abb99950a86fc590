// Package repository persists pipeline results.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
)

// ResultStore saves and reads back pipeline results. Saving a result with an
// existing run ID replaces it.
type ResultStore interface {
	Save(ctx context.Context, res *pipeline.Result) error
	Get(ctx context.Context, runID uuid.UUID) (*pipeline.Result, error)
	List(ctx context.Context, f ListFilter) ([]*pipeline.Result, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// ListFilter narrows List. Zero values match everything; results are ordered
// newest first.
type ListFilter struct {
	Status     constants.RunStatus
	SourceHash string
	Limit      int
}

const defaultListLimit = 100

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (ResultStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		s, err := OpenSQLite(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := OpenPostgres(ctx, Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			DialTimeout:     cfg.DialTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown store driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// ResultSchema is the JSON schema every stored payload must satisfy.
func ResultSchema() map[string]any {
	fieldResult := map[string]any{
		"type":     "object",
		"required": []string{"field", "extracted_value", "matched_value", "similarity"},
		"properties": map[string]any{
			"field":           map[string]any{"type": "string"},
			"extracted_value": map[string]any{"type": "string"},
			"matched_value":   map[string]any{"type": "string"},
			"similarity":      map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		},
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"run_id", "document", "status", "fields", "lib_paths"},
		"properties": map[string]any{
			"run_id":   map[string]any{"type": "string", "minLength": 36},
			"document": map[string]any{"type": "string"},
			"status": map[string]any{"enum": []string{
				string(constants.RunStatusOK),
				string(constants.RunStatusPartial),
				string(constants.RunStatusFailed),
			}},
			"fields": map[string]any{
				"type":                 "object",
				"propertyNames":        map[string]any{"enum": constants.AsStringSlice()},
				"additionalProperties": fieldResult,
			},
			"lib_paths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

// encodeResult marshals res and checks it against ResultSchema.
func encodeResult(res *pipeline.Result) ([]byte, error) {
	if res == nil {
		return nil, common.NewAppError("INVALID_RESULT", "nil result", common.ErrInvalidInput)
	}
	if res.RunID == uuid.Nil {
		return nil, common.NewAppError("INVALID_RESULT", "result has no run id", common.ErrInvalidInput)
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, common.WrapError(err, "marshal result")
	}
	if err := common.ValidateJSONAgainstSchema(ResultSchema(), payload); err != nil {
		return nil, common.NewAppError("INVALID_RESULT", "result rejected", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return payload, nil
}

func decodeResult(payload []byte) (*pipeline.Result, error) {
	var res pipeline.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "decode stored result", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return &res, nil
}

func notFound(runID uuid.UUID) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("run %s", runID), common.ErrNotFound)
}
