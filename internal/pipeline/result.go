package pipeline

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/filename"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
)

// Document is the raw input of one run. Name is optional and only used for
// logging and file-name metadata.
type Document struct {
	Name string
	Data []byte

	// Path and Hash identify the file the bytes were read from, when known.
	Path string
	Hash string
}

// Diagnostic is one advisory record of what a stage did or why it fell back.
type Diagnostic struct {
	Stage   constants.Stage `json:"stage"`
	Page    int             `json:"page,omitempty"`
	Level   string          `json:"level"`
	Message string          `json:"message"`
}

// Result is the best-effort outcome of a run. Fields always holds every
// field; unresolved ones carry constants.NotFound.
type Result struct {
	RunID       uuid.UUID                         `json:"run_id"`
	Document    string                            `json:"document"`
	SourcePath  string                            `json:"source_path,omitempty"`
	SourceHash  string                            `json:"source_hash,omitempty"`
	Pages       int                               `json:"pages"`
	HasImages   bool                              `json:"has_images,omitempty"`
	Route       constants.Route                   `json:"route,omitempty"`
	Status      constants.RunStatus               `json:"status"`
	Fields      map[constants.Field]fuzzy.Result  `json:"fields"`
	FieldOrder  []constants.Field                 `json:"field_order"`
	Paths       []string                          `json:"lib_paths"`
	RawText     string                            `json:"raw_text,omitempty"`
	Filename    filename.Meta                     `json:"filename"`
	Diagnostics []Diagnostic                      `json:"diagnostics,omitempty"`
	StartedAt   time.Time                         `json:"started_at"`
	Duration    time.Duration                     `json:"duration_ns"`
}

// Ordered returns the field results in output order.
func (r *Result) Ordered() []fuzzy.Result {
	out := make([]fuzzy.Result, 0, len(r.FieldOrder))
	for _, f := range r.FieldOrder {
		if fr, ok := r.Fields[f]; ok {
			out = append(out, fr)
		}
	}
	return out
}

// Value returns the matched value of f, or NotFound.
func (r *Result) Value(f constants.Field) string {
	if fr, ok := r.Fields[f]; ok && fr.Matched != "" {
		return fr.Matched
	}
	return constants.NotFound
}

// trace collects diagnostics and mirrors them to the logger. It is safe for
// concurrent use.
type trace struct {
	logger *slog.Logger
	mu     sync.Mutex
	diags  []Diagnostic
}

func newTrace(logger *slog.Logger) *trace {
	return &trace{logger: logger}
}

func (t *trace) add(d Diagnostic) {
	t.mu.Lock()
	t.diags = append(t.diags, d)
	t.mu.Unlock()
}

func (t *trace) info(stage constants.Stage, page int, msg string, args ...any) {
	t.add(Diagnostic{Stage: stage, Page: page, Level: "info", Message: msg})
	t.logger.Debug(msg, append([]any{"stage", stage, "page", page}, args...)...)
}

func (t *trace) warn(stage constants.Stage, page int, msg string, err error) {
	text := msg
	if err != nil {
		text = fmt.Sprintf("%s: %v", msg, err)
	}
	t.add(Diagnostic{Stage: stage, Page: page, Level: "warn", Message: text})
	t.logger.Warn(msg, "stage", stage, "page", page, "error", err)
}

func (t *trace) snapshot() []Diagnostic {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Diagnostic, len(t.diags))
	copy(out, t.diags)
	return out
}
