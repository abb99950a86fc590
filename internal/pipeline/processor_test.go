package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/fields"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
	"github.com/AjayaPrabhu/lcablesync/internal/refdata"
)

type fakeSource struct {
	pages []string
}

func (f fakeSource) PageCount() int { return len(f.pages) }

func (f fakeSource) PageText(page int) (string, error) {
	if page < 1 || page > len(f.pages) {
		return "", errors.New("out of range")
	}
	return f.pages[page-1], nil
}

type scannedSource struct{ fakeSource }

func (scannedSource) HasImages() bool { return true }

func openerFor(pages ...string) Opener {
	return func(string, []byte, *slog.Logger) (TextSource, error) {
		return fakeSource{pages: pages}, nil
	}
}

type fakeRenderer struct {
	err   error
	calls atomic.Int32
}

func (r *fakeRenderer) Render(context.Context, []byte, int, int) (image.Image, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	img := image.NewGray(image.Rect(0, 0, 60, 120))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

type fakeEngine struct {
	lines []string
	err   error
	calls atomic.Int32
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(context.Context, *image.Gray) ([]ocr.Line, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([]ocr.Line, len(e.lines))
	for i, t := range e.lines {
		out[i] = ocr.Line{Text: t, Provenance: constants.ProvenanceOCR}
	}
	return out, nil
}

func newProcessor(t *testing.T, open Opener, r *fakeRenderer, e *fakeEngine, ref *refdata.Dataset, opts Options) *Processor {
	t.Helper()
	var eng ocr.Engine
	if e != nil {
		eng = ocr.Serialize(e)
	}
	parse, err := NewParseStage(fields.DefaultParams(), normalize.Normalizer{}, ref, nil)
	if err != nil {
		t.Fatalf("NewParseStage: %v", err)
	}
	return NewProcessor(nil, open, NewOCRStage(r, eng, opts, nil), parse, nil, opts)
}

func hasDiag(res *Result, stage constants.Stage, level string) bool {
	for _, d := range res.Diagnostics {
		if d.Stage == stage && d.Level == level {
			return true
		}
	}
	return false
}

func TestRunTextLayerRoute(t *testing.T) {
	ref := refdata.New(map[constants.Field][]string{constants.FieldProject: {"X0042", "X1310"}})
	r, e := &fakeRenderer{}, &fakeEngine{}
	p := newProcessor(t, openerFor(
		"Project: X1310\nMaturity V17\nSFA CODE: CMFB1",
		"notes",
		"$LIB_FONCTIONS_SITE/05_RNTBCI/cmfb/starter.xlsx sheet1",
	), r, e, ref, DefaultOptions())

	res, err := p.Run(context.Background(), Document{Name: "SCH_cmfb_1_CIRCUIT_DE_DEMARRAGE_Starter_V17.pdf"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Route != constants.RouteTextLayer || res.Status != constants.RunStatusOK {
		t.Fatalf("route=%s status=%s", res.Route, res.Status)
	}
	if e.calls.Load() != 0 || r.calls.Load() != 0 {
		t.Fatalf("recognition ran on a sufficient text layer: render=%d ocr=%d", r.calls.Load(), e.calls.Load())
	}

	want := map[constants.Field]string{
		constants.FieldProject:          "X1310",
		constants.FieldMaturity:         "V17",
		constants.FieldVersion:          "V17",
		constants.FieldSFACode:          "CMFB1",
		constants.FieldSerialDefinition: "CMFB1",
		constants.FieldSFAName:          constants.NotFound,
	}
	for f, v := range want {
		if got := res.Value(f); got != v {
			t.Errorf("%s = %q, want %q", f, got, v)
		}
	}
	if s := res.Fields[constants.FieldProject].Score; s != 100 {
		t.Errorf("Project similarity = %v, want 100", s)
	}
	if len(res.Fields) != len(constants.AllFields()) || len(res.Ordered()) != len(constants.AllFields()) {
		t.Fatalf("got %d fields, want all", len(res.Fields))
	}
	if len(res.Paths) != 1 || res.Paths[0] != "$LIB_FONCTIONS_SITE/05_RNTBCI/cmfb/starter.xlsx sheet1" {
		t.Fatalf("Paths = %q", res.Paths)
	}
	if res.Filename.Platform != "cmfb" || res.Filename.Code != "1" {
		t.Fatalf("Filename = %+v", res.Filename)
	}
	if !hasDiag(res, constants.StageDone, "info") {
		t.Fatal("missing DONE diagnostic")
	}
}

func TestRunFolderMetadata(t *testing.T) {
	p := newProcessor(t, openerFor("Projet X1310\nÉtat : Définitif"), &fakeRenderer{}, &fakeEngine{}, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{
		Name: "SCH_cmfb_1_CIRCUIT_V17.pdf",
		Path: "/data/X0042/PT1/SCH_cmfb_1_CIRCUIT_V17.pdf",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fm := res.Filename
	if fm.Project != "X0042" || fm.Milestone != "PT1" || fm.Platform != "cmfb" {
		t.Fatalf("Filename = %+v", fm)
	}
	if fm.MaturitySchema != "Definitif (Serial version)" {
		t.Fatalf("MaturitySchema = %q", fm.MaturitySchema)
	}

	res, err = p.Run(context.Background(), Document{Name: "SCH_cmfb_1_CIRCUIT_V17.pdf"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Filename.Project != "X1310" {
		t.Fatalf("Project from text = %q, want X1310", res.Filename.Project)
	}
}

func TestRunOCRFallbackFindsCode(t *testing.T) {
	r, e := &fakeRenderer{}, &fakeEngine{lines: []string{"  X0042 ", "", "X0042"}}
	p := newProcessor(t, openerFor(""), r, e, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{Name: "scan.pdf"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Route != constants.RouteOCR {
		t.Fatalf("route = %s, want ocr", res.Route)
	}
	if got := res.Value(constants.FieldProject); got != "X0042" {
		t.Fatalf("Project = %q, want X0042", got)
	}
	// three header crops plus the full page; the single page's full pass is
	// reused for path extraction.
	if got := e.calls.Load(); got != 4 {
		t.Fatalf("recognitions = %d, want 4", got)
	}
	if got := r.calls.Load(); got != 1 {
		t.Fatalf("renders = %d, want 1", got)
	}
	if len(res.Paths) != 0 || res.Paths == nil {
		t.Fatalf("Paths = %#v, want empty non-nil", res.Paths)
	}
}

func TestRunLastPagePathsFromRecognition(t *testing.T) {
	r := &fakeRenderer{}
	e := &fakeEngine{lines: []string{`$LIB_FONCTIONS_SITE\a\b.xlsx`, "Sheet1"}}
	p := newProcessor(t, openerFor("Project: X1310", ""), r, e, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Paths) != 1 || res.Paths[0] != "$LIB_FONCTIONS_SITE/a/b.xlsx Sheet1" {
		t.Fatalf("Paths = %q", res.Paths)
	}
	if e.calls.Load() != 1 {
		t.Fatalf("recognitions = %d, want 1", e.calls.Load())
	}
	if !strings.Contains(res.RawText, "b.xlsx") {
		t.Fatalf("raw text lacks recognized last page: %q", res.RawText)
	}
}

func TestRunRecordsImageStreams(t *testing.T) {
	open := func(string, []byte, *slog.Logger) (TextSource, error) {
		return scannedSource{fakeSource{pages: []string{""}}}, nil
	}
	p := newProcessor(t, open, &fakeRenderer{}, &fakeEngine{}, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.HasImages {
		t.Fatal("HasImages = false, want true")
	}
	var sawScan bool
	for _, d := range res.Diagnostics {
		if d.Stage == constants.StageTextLayerTry && strings.Contains(d.Message, "scanned document") {
			sawScan = true
		}
	}
	if !sawScan {
		t.Fatalf("missing scan diagnostic in %+v", res.Diagnostics)
	}

	res, err = newProcessor(t, openerFor("Project: X1310"), &fakeRenderer{}, &fakeEngine{}, nil, DefaultOptions()).
		Run(context.Background(), Document{})
	if err != nil || res.HasImages {
		t.Fatalf("plain source: HasImages=%v err=%v", res.HasImages, err)
	}
}

func TestRunForceOCR(t *testing.T) {
	opts := DefaultOptions()
	opts.ForceOCR = true
	e := &fakeEngine{lines: []string{"Project: X9"}}
	p := newProcessor(t, openerFor("Project: X1310"), &fakeRenderer{}, e, nil, opts)

	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Route != constants.RouteOCR {
		t.Fatalf("route = %s, want ocr", res.Route)
	}
	// recognized lines come before text-layer lines
	if got := res.Value(constants.FieldProject); got != "X9" {
		t.Fatalf("Project = %q, want X9", got)
	}
}

func TestRunRenderFailureDegrades(t *testing.T) {
	r := &fakeRenderer{err: common.StageError(common.ErrRender, "boom", nil)}
	e := &fakeEngine{}
	p := newProcessor(t, openerFor(""), r, e, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("render failure must not surface: %v", err)
	}
	if res.Status != constants.RunStatusOK {
		t.Fatalf("status = %s", res.Status)
	}
	for _, f := range constants.AllFields() {
		if got := res.Value(f); got != constants.NotFound {
			t.Errorf("%s = %q, want NotFound", f, got)
		}
	}
	if !hasDiag(res, constants.StageRender, "warn") {
		t.Fatal("missing RENDER warning")
	}
	if e.calls.Load() != 0 {
		t.Fatal("engine called without a raster")
	}
}

func TestRunRecognitionFailureDegrades(t *testing.T) {
	e := &fakeEngine{err: common.StageError(common.ErrRecognition, "engine crashed", nil)}
	p := newProcessor(t, openerFor(""), &fakeRenderer{}, e, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("recognition failure must not surface: %v", err)
	}
	if !hasDiag(res, constants.StageOCR, "warn") {
		t.Fatal("missing OCR warning")
	}
	if got := res.Value(constants.FieldProject); got != constants.NotFound {
		t.Fatalf("Project = %q", got)
	}
}

func TestRunCorruptSource(t *testing.T) {
	p := newProcessor(t, nil, &fakeRenderer{}, &fakeEngine{}, nil, DefaultOptions())

	res, err := p.Run(context.Background(), Document{Name: "bad.pdf", Data: []byte("definitely not a pdf")})
	if !errors.Is(err, common.ErrSourceRead) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
	if res == nil || res.Status != constants.RunStatusFailed {
		t.Fatalf("result = %+v, want FAILED", res)
	}
	if got := res.Value(constants.FieldProject); got != constants.NotFound {
		t.Fatalf("Project = %q", got)
	}
}

func TestRunCancelledIsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newProcessor(t, openerFor("Project: X1310"), &fakeRenderer{}, &fakeEngine{}, nil, DefaultOptions())

	res, err := p.Run(ctx, Document{})
	if err != nil {
		t.Fatalf("cancellation must not surface: %v", err)
	}
	if res.Status != constants.RunStatusPartial {
		t.Fatalf("status = %s, want PARTIAL", res.Status)
	}
	if len(res.Fields) != len(constants.AllFields()) {
		t.Fatalf("partial result lacks fields: %d", len(res.Fields))
	}
}

func TestRunWithoutEngine(t *testing.T) {
	p := NewProcessor(nil, openerFor(""), nil, nil, nil, DefaultOptions())
	res, err := p.Run(context.Background(), Document{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !hasDiag(res, constants.StageRender, "warn") {
		t.Fatal("expected a warning that recognition is unavailable")
	}
}

func TestMergeLines(t *testing.T) {
	a := []ocr.Line{{Text: "Project:  X1310"}, {Text: "  "}, {Text: "V17"}}
	b := []ocr.Line{{Text: "Project: X1310"}, {Text: "Gateway"}}
	got := ocr.Texts(MergeLines(a, b))
	want := []string{"Project: X1310", "V17", "Gateway"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("MergeLines = %q, want %q", got, want)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := common.LoadConfig().Pipeline
	cfg.Thresholds["Project"] = 70
	cfg.ProjectYearCutoff = 2040
	p := ParamsFromConfig(cfg)
	if p.Thresholds[constants.FieldProject] != 70 || p.YearCutoff != 2040 {
		t.Fatalf("params = %+v", p)
	}
	if got := PatternFromConfig(cfg).Markers; got != "$S" {
		t.Fatalf("markers = %q", got)
	}

	cfg.HeaderWindow, cfg.MergedWindow, cfg.NumericWindow, cfg.KeywordWindow = 20, 30, 8, 6
	cfg.ProjectMinDigits, cfg.ProjectMaxDigits = 3, 6
	p = ParamsFromConfig(cfg)
	if p.HeaderWindow != 20 || p.MergedWindow != 30 || p.NumericWindow != 8 || p.KeywordWindow != 6 {
		t.Fatalf("windows = %d/%d/%d/%d", p.HeaderWindow, p.MergedWindow, p.NumericWindow, p.KeywordWindow)
	}
	if p.MinDigits != 3 || p.MaxDigits != 6 {
		t.Fatalf("digits = %d..%d", p.MinDigits, p.MaxDigits)
	}
}

func TestFromConfigRejectsInvertedDigitBounds(t *testing.T) {
	cfg := common.LoadConfig()
	cfg.Pipeline.ProjectMinDigits = 5
	if err := cfg.Validate(); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("Validate = %v, want ErrInvalidInput", err)
	}

	p, err := FromConfig(cfg.Pipeline, Deps{}, nil)
	if !errors.Is(err, common.ErrInvalidInput) || p != nil {
		t.Fatalf("FromConfig = (%v, %v), want invalid input", p, err)
	}
}
