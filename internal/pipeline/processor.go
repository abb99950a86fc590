// Package pipeline runs one document through text-layer extraction, the
// recognition fallback, field extraction, reference matching and LIB path
// extraction, and always produces a result unless the source is unreadable.
package pipeline

import (
	"cmp"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fields"
	"github.com/AjayaPrabhu/lcablesync/internal/core/filename"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fuzzy"
	"github.com/AjayaPrabhu/lcablesync/internal/core/libpath"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/core/textlayer"
)

// TextSource is an opened document's embedded text.
type TextSource interface {
	PageCount() int
	PageText(page int) (string, error)
}

// Opener parses raw bytes into a TextSource. It must fail with an error
// matching common.ErrSourceRead when the bytes are not a usable document.
type Opener func(name string, data []byte, logger *slog.Logger) (TextSource, error)

// imageHinter is implemented by sources that know whether they embed raster
// images. A text layer that is thin while images are present is a scan.
type imageHinter interface {
	HasImages() bool
}

// OpenPDF is the default Opener.
func OpenPDF(name string, data []byte, logger *slog.Logger) (TextSource, error) {
	d, err := textlayer.Open(name, data, logger)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Processor coordinates the stages of a run. A Processor holds no per-run
// state and may be shared by workers; the recognition engine it wraps is
// expected to serialize itself.
type Processor struct {
	logger *slog.Logger
	open   Opener
	ocr    *OCRStage
	parse  *ParseStage
	paths  *libpath.Extractor
	opts   Options
}

func NewProcessor(logger *slog.Logger, open Opener, ocrStage *OCRStage, parse *ParseStage, paths *libpath.Extractor, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if open == nil {
		open = OpenPDF
	}
	if paths == nil {
		paths = libpath.MustNew(libpath.DefaultPattern)
	}
	if parse == nil {
		// default params always compile
		parse, _ = NewParseStage(fields.DefaultParams(), normalize.Normalizer{}, nil, logger)
	}
	if ocrStage == nil {
		ocrStage = NewOCRStage(nil, nil, opts, logger)
	}
	return &Processor{logger: logger, open: open, ocr: ocrStage, parse: parse, paths: paths, opts: opts.withDefaults()}
}

// Run processes doc. The returned error is nil except when the source cannot
// be read (common.ErrSourceRead); the result is then marked FAILED. When ctx
// ends mid-run the result is marked PARTIAL and unfinished stages hold their
// fallback values.
func (p *Processor) Run(ctx context.Context, doc Document) (*Result, error) {
	res := &Result{
		RunID:      uuid.New(),
		Document:   doc.Name,
		SourcePath: doc.Path,
		SourceHash: doc.Hash,
		Status:     constants.RunStatusOK,
		FieldOrder: constants.AllFields(),
		Paths:      []string{},
		StartedAt:  time.Now().UTC(),
	}
	ctx = common.WithDocument(common.WithRunID(ctx, res.RunID.String()), doc.Name)
	logger := p.logger.With("run_id", res.RunID.String(), "document", doc.Name)
	tr := newTrace(logger)
	defer func() {
		res.Diagnostics = tr.snapshot()
		res.Duration = time.Since(res.StartedAt)
	}()

	tr.info(constants.StageStart, 0, "run started", "bytes", len(doc.Data))
	// the folder path carries project and milestone tokens the base name lacks
	if loc := cmp.Or(doc.Path, doc.Name); loc != "" {
		res.Filename = filename.Parse(loc)
	}

	src, err := p.open(doc.Name, doc.Data, logger)
	if err != nil {
		tr.warn(constants.StageTextLayerTry, 0, "source unreadable", err)
		res.Status = constants.RunStatusFailed
		res.Fields = p.parse.Match(unresolved())
		return res, err
	}
	res.Pages = src.PageCount()

	// TEXT_LAYER_TRY
	firstText := p.pageText(src, 1, tr)
	tlLines := ocr.Texts(textlayer.Lines(firstText))
	sufficient := textlayer.Sufficient(tlLines)
	if h, ok := src.(imageHinter); ok {
		res.HasImages = h.HasImages()
	}
	tr.info(constants.StageTextLayerTry, 1, "text layer checked", "lines", len(tlLines), "sufficient", sufficient, "has_images", res.HasImages)
	if res.HasImages && !sufficient {
		tr.info(constants.StageTextLayerTry, 1, "image streams present, text layer thin: scanned document")
	}

	var (
		lines   []string
		raw     strings.Builder
		fullOCR []ocr.Line
	)
	raw.WriteString(firstText)

	if sufficient && !p.opts.ForceOCR {
		res.Route = constants.RouteTextLayer
		lines = fields.Lines(nil, firstText)
	} else {
		res.Route = constants.RouteOCR
		if p.opts.ForceOCR && sufficient {
			tr.info(constants.StageTextLayerTry, 1, "recognition forced")
		}
		var header []ocr.Line
		header, fullOCR = p.ocr.Header(ctx, doc.Data, 1, tr)
		appendText(&raw, joinLines(header))
		lines = fields.Lines(ocr.Texts(header), firstText)
	}
	if p.expired(ctx, constants.StageFieldExtract, res, tr) {
		res.Fields = p.parse.Match(unresolved())
		res.RawText = raw.String()
		return res, nil
	}

	// FIELD_EXTRACT
	extracted := p.parse.Extract(lines, firstText)
	tr.info(constants.StageFieldExtract, 1, "fields extracted", "lines", len(lines), "resolved", countResolved(extracted))

	// MATCH ∥ PATH_EXTRACT
	var (
		matched  map[constants.Field]fuzzy.Result
		paths    []string
		pathText string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matched = p.parse.Match(extracted)
		tr.info(constants.StageMatch, 0, "fields reconciled")
		return nil
	})
	g.Go(func() error {
		paths, pathText = p.extractPaths(gctx, doc.Data, src, firstText, res.Route, fullOCR, tr)
		return nil
	})
	_ = g.Wait()

	res.Fields = matched
	res.Paths = paths
	appendText(&raw, pathText)
	res.RawText = raw.String()
	res.Filename.ApplyText(res.RawText)

	if p.expired(ctx, constants.StageDone, res, tr) {
		return res, nil
	}
	tr.info(constants.StageDone, 0, "run finished", "route", res.Route, "paths", len(res.Paths))
	return res, nil
}

// extractPaths reads LIB paths from the last page's text layer, falling back
// to recognition of that page. It returns the paths and any text it had to
// obtain beyond the first page's text layer.
func (p *Processor) extractPaths(ctx context.Context, data []byte, src TextSource, firstText string, route constants.Route, firstOCR []ocr.Line, tr *trace) ([]string, string) {
	last := src.PageCount()
	text := firstText
	var extra string
	if last > 1 {
		text = p.pageText(src, last, tr)
		extra = text
	}
	if paths := p.paths.Extract(text); len(paths) > 0 {
		tr.info(constants.StagePathExtract, last, "paths found in text layer", "paths", len(paths))
		return paths, extra
	}
	if ctx.Err() != nil {
		return []string{}, extra
	}

	var recognized []ocr.Line
	if last == 1 && route == constants.RouteOCR && len(firstOCR) > 0 {
		recognized = firstOCR
	} else {
		recognized = p.ocr.Page(ctx, data, last, tr)
	}
	ocrText := joinLines(recognized)
	paths := p.paths.Extract(ocrText)
	tr.info(constants.StagePathExtract, last, "paths extracted from recognition", "paths", len(paths))
	if last > 1 || route != constants.RouteOCR {
		extra = joinNonEmpty(extra, ocrText)
	}
	return paths, extra
}

func (p *Processor) pageText(src TextSource, page int, tr *trace) string {
	text, err := src.PageText(page)
	if err != nil {
		tr.warn(constants.StageTextLayerTry, page, "text layer unreadable", err)
		return ""
	}
	return text
}

// expired marks res PARTIAL when ctx has ended.
func (p *Processor) expired(ctx context.Context, stage constants.Stage, res *Result, tr *trace) bool {
	if err := ctx.Err(); err != nil {
		res.Status = constants.RunStatusPartial
		tr.warn(stage, 0, "run interrupted, returning partial result", err)
		return true
	}
	return false
}

func countResolved(m map[constants.Field]string) int {
	n := 0
	for _, v := range m {
		if !constants.IsNotFound(v) {
			n++
		}
	}
	return n
}

func appendText(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(s)
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "\n" + b
}
