// Package textlayer reads the embedded, selectable text of PDF pages and
// decides whether it is usable without recognition.
package textlayer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
	"github.com/AjayaPrabhu/lcablesync/internal/core/ocr"
)

var disableConfigDir sync.Once

// Document is an opened PDF. It is read-only after Open.
type Document struct {
	name      string
	pageCount int
	hasImages bool
	reader    *pdf.Reader
	logger    *slog.Logger
}

// Open parses data as a PDF. The structure is validated with pdfcpu; when
// pdfcpu rejects the file but the text reader can still parse it, the
// document is accepted with a warning. Only when both fail is the source
// reported unreadable.
func Open(name string, data []byte, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 {
		return nil, common.SourceReadError(name, errors.New("empty document"))
	}
	disableConfigDir.Do(api.DisableConfigDir)

	d := &Document{name: name, logger: logger}

	ctx, verr := validate(data)
	if verr == nil {
		d.pageCount = ctx.PageCount
		d.hasImages = detectImageStreams(ctx)
	}

	r, rerr := openReader(data)
	if rerr == nil {
		d.reader = r
		if d.pageCount == 0 {
			d.pageCount = r.NumPage()
		}
	}

	switch {
	case verr != nil && rerr != nil:
		return nil, common.SourceReadError(name, errors.Join(verr, rerr))
	case verr != nil:
		logger.Warn("pdf validation failed, continuing with text reader", "document", name, "error", verr)
	case rerr != nil:
		logger.Warn("text reader cannot parse pdf, text layer unavailable", "document", name, "error", rerr)
	}
	if d.pageCount < 1 {
		return nil, common.SourceReadError(name, errors.New("document has no pages"))
	}
	return d, nil
}

func validate(data []byte) (ctx *model.Context, err error) {
	defer func() {
		if p := recover(); p != nil {
			ctx, err = nil, fmt.Errorf("pdf validation panic: %v", p)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
}

func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("pdf reader panic: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func (d *Document) Name() string   { return d.name }
func (d *Document) PageCount() int { return d.pageCount }

// HasImages reports whether any page carries an image XObject, a hint
// that the document is scanned.
func (d *Document) HasImages() bool { return d.hasImages }

// PageText returns the plain text of the 1-based page. A page without a
// text layer yields "" and no error.
func (d *Document) PageText(page int) (text string, err error) {
	if page < 1 || page > d.pageCount {
		return "", fmt.Errorf("page %d out of range 1..%d", page, d.pageCount)
	}
	if d.reader == nil {
		return "", nil
	}
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("page %d: text extraction panic: %v", page, p)
		}
	}()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return text, nil
}

func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st, found := sd.Find("Subtype"); found {
			if n, ok := st.(types.Name); ok && n == "Image" {
				return true
			}
		}
	}
	return false
}

var reCode = regexp.MustCompile(`[A-Za-z]+\d+`)

// Sufficient reports whether some line contains a letter run immediately
// followed by a digit run ("X1310"). It is a cheap proxy for "this page
// carries the metadata block".
func Sufficient(lines []string) bool {
	for _, ln := range lines {
		if reCode.MatchString(ln) {
			return true
		}
	}
	return false
}

// Lines splits page text into trimmed lines in reading order. Empty lines and
// table rules are dropped.
func Lines(text string) []ocr.Line {
	var out []ocr.Line
	for _, ln := range ocr.SplitLines(text) {
		out = append(out, ocr.Line{Text: ln, Provenance: constants.ProvenanceTextLayer})
	}
	return out
}
